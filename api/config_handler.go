// Package api — configuration inspection endpoints.
package api

import (
	"net/http"

	"github.com/seenimoa/investez/internal/config"
)

// ConfigView is the sanitized configuration returned by GET /api/config.
// Secrets never appear here; only their masked status is exposed via
// /api/config/credentials.
type ConfigView struct {
	ConversationsDir  string   `json:"conversations_dir"`
	DatabasePath      string   `json:"database_path"`
	CacheTTLSeconds   int      `json:"cache_ttl_seconds"`
	EnrichConcurrency int      `json:"enrich_concurrency"`
	APIHost           string   `json:"api_host"`
	APIPort           int      `json:"api_port"`
	CORSOrigins       []string `json:"cors_origins"`
	LogLevel          string   `json:"log_level"`
}

// CredentialView is one broker credential's masked status.
type CredentialView struct {
	Name   string `json:"name"`
	IsSet  bool   `json:"is_set"`
	Masked string `json:"masked,omitempty"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigView{
			ConversationsDir:  s.cfg.Store.ConversationsDir,
			DatabasePath:      s.cfg.Store.DatabasePath,
			CacheTTLSeconds:   s.cfg.Data.CacheTTLSeconds,
			EnrichConcurrency: s.cfg.Data.EnrichConcurrency,
			APIHost:           s.cfg.API.Host,
			APIPort:           s.cfg.API.Port,
			CORSOrigins:       s.cfg.API.CORSOrigins,
			LogLevel:          s.cfg.Logging.Level,
		},
	})
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}

	statuses := config.CheckCredentials(s.cfg)
	views := make([]CredentialView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, CredentialView{Name: st.Name, IsSet: st.IsSet, Masked: st.Masked})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: views})
}
