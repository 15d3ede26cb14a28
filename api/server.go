// Package api provides the HTTP API server for InvestEz.
//
// It exposes the conversational assistant over REST and WebSocket, the
// aggregated portfolio views, mutual fund search, and saved-session
// management, plus Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seenimoa/investez/internal/agent"
	"github.com/seenimoa/investez/internal/broker"
	"github.com/seenimoa/investez/internal/config"
	"github.com/seenimoa/investez/internal/portfolio"
	"github.com/seenimoa/investez/internal/store"
	"github.com/seenimoa/investez/pkg/models"
)

// FundSearcher supplies fund search for the /api/funds/search endpoint.
type FundSearcher interface {
	SearchFunds(ctx context.Context, query string, limit int) ([]models.NAVRecord, error)
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config

	stock     *agent.StockAgent
	mf        *agent.MFAgent
	news      *agent.NewsAgent
	portfolio *portfolio.Aggregator
	funds     FundSearcher
	sessions  *store.ConversationStore

	wsHub  *WSHub
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string]*agent.Orchestrator // live orchestrators by session ID
}

// ServerConfig holds the server's dependencies.
type ServerConfig struct {
	Config    *config.Config
	Stock     *agent.StockAgent
	MF        *agent.MFAgent
	News      *agent.NewsAgent
	Portfolio *portfolio.Aggregator
	Funds     FundSearcher
	Sessions  *store.ConversationStore
	Logger    zerolog.Logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg ServerConfig) *Server {
	srv := &Server{
		cfg:       cfg.Config,
		stock:     cfg.Stock,
		mf:        cfg.MF,
		news:      cfg.News,
		portfolio: cfg.Portfolio,
		funds:     cfg.Funds,
		sessions:  cfg.Sessions,
		wsHub:     NewWSHub(cfg.Logger),
		logger:    cfg.Logger,
		active:    make(map[string]*agent.Orchestrator),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown on SIGINT
// and SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("API server listening")

	select {
	case err := <-errCh:
		return err
	case <-done:
	}

	s.logger.Info().Msg("shutting down API server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", s.handlePortfolio)
			r.Get("/summary", s.handlePortfolioSummary)
			r.Get("/holdings", s.handleHoldings)
			r.Get("/mf", s.handleMFHoldings)
			r.Get("/allocation", s.handleAllocation)
		})

		r.Get("/funds/search", s.handleFundSearch)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Put("/{id}", s.handleRenameSession)
			r.Delete("/{id}", s.handleDeleteSession)
		})

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/credentials", s.handleCredentialStatus)
	})

	r.Get("/ws/chat", s.handleWebSocket)

	return r
}

// requestLogger logs each request with zerolog at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// ── Request / Response types ──

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChatRequest is the body for POST /api/chat. An empty SessionID starts a
// new conversation named after the first message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the payload returned for a processed chat message.
type ChatResponse struct {
	SessionID   string   `json:"session_id"`
	SessionName string   `json:"session_name"`
	Text        string   `json:"text"`
	Agent       string   `json:"agent"`
	Tools       []string `json:"tools,omitempty"`
}

// RenameSessionRequest is the body for PUT /api/sessions/{id}.
type RenameSessionRequest struct {
	Name string `json:"name"`
}

// ── Handlers ──

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":  "ok",
			"version": Version,
			"time":    time.Now().Format(time.RFC3339),
		},
	})
}

// Version is stamped at build time via -ldflags.
var Version = "dev"

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	resp, err := s.processChat(ctx, req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

// processChat routes one message through the session's orchestrator and
// persists the updated conversation. Shared by the REST and WebSocket paths.
func (s *Server) processChat(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	orch, err := s.orchestratorFor(sessionID, message)
	if err != nil {
		return nil, err
	}

	resp := orch.Process(ctx, message)

	session := orch.Session()
	if err := s.sessions.Save(session); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("session save failed")
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "chat_activity",
		Data: map[string]any{
			"session_id": session.SessionID,
			"agent":      resp.Agent,
		},
	})

	return &ChatResponse{
		SessionID:   session.SessionID,
		SessionName: session.Name,
		Text:        resp.Text,
		Agent:       resp.Agent,
		Tools:       resp.Tools,
	}, nil
}

// orchestratorFor returns the live orchestrator for a session, loading the
// saved conversation or starting a new one when sessionID is empty.
func (s *Server) orchestratorFor(sessionID, firstMessage string) (*agent.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if orch, ok := s.active[sessionID]; ok {
			return orch, nil
		}
	}

	var session *models.Conversation
	if sessionID == "" {
		session = s.sessions.Create(store.AutoGenerateName(firstMessage))
	} else {
		loaded, err := s.sessions.Load(sessionID)
		if err != nil {
			return nil, err
		}
		session = loaded
	}

	orch := agent.NewOrchestrator(agent.OrchestratorConfig{
		Stock:   s.stock,
		MF:      s.mf,
		News:    s.news,
		Session: session,
		Logger:  s.logger,
	})
	s.active[session.SessionID] = orch
	return orch, nil
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	p, err := s.portfolio.Build(ctx)
	if err != nil {
		writeError(w, brokerErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: p})
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	p, err := s.portfolio.Build(ctx)
	if err != nil {
		writeError(w, brokerErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: p.Summary})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	holdings, err := s.portfolio.HoldingsOnly(ctx)
	if err != nil {
		writeError(w, brokerErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: holdings})
}

func (s *Server) handleMFHoldings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	mfs, err := s.portfolio.MFOnly(ctx)
	if err != nil {
		writeError(w, brokerErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: mfs})
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	p, err := s.portfolio.Build(ctx)
	if err != nil {
		writeError(w, brokerErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: p.Allocation})
}

func (s *Server) handleFundSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	funds, err := s.funds.SearchFunds(ctx, q, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if funds == nil {
		funds = []models.NAVRecord{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: funds})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	summaries, err := s.sessions.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summaries})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.sessions.Load(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: conv})
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	conv, err := s.sessions.Rename(id, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: conv})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sessions.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]string{"deleted": id}})
}

// ── Helpers ──

// brokerErrStatus maps broker failures onto HTTP statuses: expired tokens
// want re-authentication, missing configuration is a service problem.
func brokerErrStatus(err error) int {
	var expired *broker.TokenExpiredError
	switch {
	case errors.As(err, &expired):
		return http.StatusUnauthorized
	case errors.Is(err, broker.ErrNotConfigured), errors.Is(err, broker.ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
