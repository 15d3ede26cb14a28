// Package store persists conversations (JSON files, one per session) and
// broker credentials (SQLite, secrets encrypted at rest).
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/investez/pkg/models"
)

var (
	slugDropRe  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe = regexp.MustCompile(`[\s_]+`)
)

// ErrNotFound is returned when no conversation matches a session ID.
var ErrNotFound = errors.New("conversation not found")

// ErrEmptySessID is returned for operations on a blank session ID.
var ErrEmptySessID = errors.New("empty session id")

// ConversationStore saves conversations as pretty-printed JSON files named
// <session_id>.json under a single directory.
type ConversationStore struct {
	dir string
}

// NewConversationStore creates the store, creating dir if needed.
func NewConversationStore(dir string) (*ConversationStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversations dir: %w", err)
	}
	return &ConversationStore{dir: dir}, nil
}

// Create starts a new conversation. An empty name defaults to a
// time-of-day label.
func (s *ConversationStore) Create(name string) *models.Conversation {
	now := time.Now()
	if name == "" {
		name = "Conversation " + now.Format("15:04")
	}
	return &models.Conversation{
		SessionID: now.Format("2006-01-02") + "_" + Slug(name),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
}

// Save writes the conversation to disk, overwriting any previous state.
func (s *ConversationStore) Save(conv *models.Conversation) error {
	if conv.SessionID == "" {
		return ErrEmptySessID
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return os.WriteFile(s.path(conv.SessionID), data, 0o644)
}

// Load retrieves a conversation by session ID. Exact match is tried first,
// then the first file whose name contains the given ID as a substring.
func (s *ConversationStore) Load(sessionID string) (*models.Conversation, error) {
	if sessionID == "" {
		return nil, ErrEmptySessID
	}

	if conv, err := s.loadFile(s.path(sessionID)); err == nil {
		return conv, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		stem, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok {
			continue
		}
		if strings.Contains(stem, sessionID) {
			return s.loadFile(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil, ErrNotFound
}

// List returns summaries of the most recent conversations, newest session ID
// first. Unreadable files are skipped.
func (s *ConversationStore) List(limit int) ([]models.ConversationSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	summaries := make([]models.ConversationSummary, 0, limit)
	for _, name := range names {
		if len(summaries) >= limit {
			break
		}
		conv, err := s.loadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		summaries = append(summaries, models.ConversationSummary{
			SessionID:    conv.SessionID,
			Name:         conv.Name,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
		})
	}
	return summaries, nil
}

// Delete removes a conversation file. Returns ErrNotFound when no exact
// session ID matches.
func (s *ConversationStore) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Rename changes a conversation's display name; the session ID (and thus the
// file name) stays stable.
func (s *ConversationStore) Rename(sessionID, newName string) (*models.Conversation, error) {
	conv, err := s.Load(sessionID)
	if err != nil {
		return nil, err
	}
	conv.Name = newName
	conv.UpdatedAt = time.Now()
	if err := s.Save(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *ConversationStore) loadFile(path string) (*models.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parse conversation %s: %w", filepath.Base(path), err)
	}
	return &conv, nil
}

// Slug converts free text into a file-name-safe token: lowercase, special
// characters dropped, whitespace and underscores collapsed to hyphens,
// capped at 50 characters.
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugDropRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return strings.Trim(s, "-")
}

// AutoGenerateName derives a conversation name from its first message.
func AutoGenerateName(firstMessage string) string {
	msg := strings.ToLower(strings.TrimSpace(firstMessage))

	titled := titleCase(firstMessage)

	switch {
	case strings.Contains(msg, "compare"):
		return truncate(titled, 50)
	case strings.Contains(msg, "tell me about"):
		topic := strings.TrimSpace(strings.ReplaceAll(msg, "tell me about", ""))
		return truncate("Analyzing "+titleCase(topic), 50)
	case strings.Contains(msg, "analyze") || strings.Contains(msg, "analysis"):
		return truncate(titled, 50)
	case strings.Contains(msg, "what") && strings.Contains(msg, "?"):
		return truncate(firstMessage, 40)
	}

	words := strings.Fields(firstMessage)
	if len(words) <= 3 {
		return titled
	}
	if len(words) > 5 {
		words = words[:5]
	}
	return truncate(titleCase(strings.Join(words, " ")), 50)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
