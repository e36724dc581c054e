// Package store holds the in-memory authoritative application state:
// user, sessions, current session pointer, provider configs and the
// sync flag. Every mutation is atomic with respect to readers and never
// performs I/O; remote side effects belong to the service layer.
package store

import (
	"sync"

	"github.com/lumen-med/whitecard/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	user             *domain.UserProfile
	sessions         []domain.ChatSession
	currentSessionID string

	configs      map[domain.Provider]domain.ModelConfig
	activeConfig domain.ModelConfig
	language     domain.Language

	syncing bool
}

// New returns a store seeded with the given settings. Pass
// domain.DefaultSettings() for a fresh install.
func New(settings domain.Settings) *Store {
	configs := make(map[domain.Provider]domain.ModelConfig, len(settings.Configs))
	for p, c := range settings.Configs {
		configs[p] = c
	}
	// Anything missing from a persisted older settings record falls back
	// to the factory entry for that provider.
	for p, c := range domain.DefaultConfigs() {
		if _, ok := configs[p]; !ok {
			configs[p] = c
		}
	}
	active := settings.ActiveConfig
	if active.Provider == "" {
		active = configs[domain.ProviderGemini]
	}
	lang := settings.Language
	if lang == "" {
		lang = domain.LanguageZH
	}
	return &Store{
		configs:      configs,
		activeConfig: active,
		language:     lang,
	}
}

// SetUser replaces the current user. nil is the logout signal; clearing
// the session list on logout is the sync orchestrator's job.
func (s *Store) SetUser(user *domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Store) User() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetSessions replaces the whole session list, used after a remote
// fetch. The current pointer is reset if it no longer resolves.
func (s *Store) SetSessions(sessions []domain.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = copySessions(sessions)
	if s.currentSessionID != "" && s.indexOf(s.currentSessionID) < 0 {
		s.currentSessionID = ""
	}
}

// AddSession prepends the session and makes it current. The caller
// guarantees a fresh id; no deduplication happens here.
func (s *Store) AddSession(sess domain.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Messages = copyMessages(sess.Messages)
	s.sessions = append([]domain.ChatSession{sess}, s.sessions...)
	s.currentSessionID = sess.ID
}

// UpdateSession merges the patch into the matching session. Absent ids
// are a silent no-op; the return value reports whether a session matched.
func (s *Store) UpdateSession(id string, patch domain.SessionPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	if patch.Title != nil {
		s.sessions[i].Title = *patch.Title
	}
	if patch.Messages != nil {
		s.sessions[i].Messages = copyMessages(patch.Messages)
	}
	return true
}

// DeleteSession removes the session from the list. If it was current,
// the current pointer resets to empty. Remote deletion is not this
// layer's concern.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
	if s.currentSessionID == id {
		s.currentSessionID = ""
	}
	return true
}

// SetCurrentSessionID points the UI at a session; empty clears the
// pointer. An id not present in the list is refused.
func (s *Store) SetCurrentSessionID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexOf(id) < 0 {
		return false
	}
	s.currentSessionID = id
	return true
}

func (s *Store) CurrentSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSessionID
}

func (s *Store) CurrentSession() (domain.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentSessionID == "" {
		return domain.ChatSession{}, false
	}
	return s.sessionCopy(s.currentSessionID)
}

func (s *Store) Session(id string) (domain.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionCopy(id)
}

// Sessions returns a snapshot of the session list, newest first.
func (s *Store) Sessions() []domain.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySessions(s.sessions)
}

// SetMessageFeedback toggles the feedback flag on one message. The
// local value is optimistic and sticky regardless of remote outcome.
func (s *Store) SetMessageFeedback(sessionID, messageID string, fb domain.Feedback) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(sessionID)
	if i < 0 {
		return false
	}
	msgs := copyMessages(s.sessions[i].Messages)
	for j := range msgs {
		if msgs[j].ID == messageID {
			msgs[j].Feedback = fb
			s.sessions[i].Messages = msgs
			return true
		}
	}
	return false
}

// UpdateConfig merges the patch into the provider's config. When the
// patched provider is the active one, the active config is updated in
// the same operation so no stale copy survives.
func (s *Store) UpdateConfig(provider domain.Provider, patch domain.ConfigPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[provider]
	if !ok {
		cfg = domain.ModelConfig{Provider: provider}
	}
	if patch.BaseURL != nil {
		cfg.BaseURL = *patch.BaseURL
	}
	if patch.ModelName != nil {
		cfg.ModelName = *patch.ModelName
	}
	s.configs[provider] = cfg
	if s.activeConfig.Provider == provider {
		s.activeConfig = cfg
	}
}

// SetActiveProvider switches the active config to the given provider's
// stored entry.
func (s *Store) SetActiveProvider(provider domain.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[provider]
	if !ok {
		cfg = domain.ModelConfig{Provider: provider}
		s.configs[provider] = cfg
	}
	s.activeConfig = cfg
}

func (s *Store) ActiveConfig() domain.ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeConfig
}

func (s *Store) Config(provider domain.Provider) (domain.ModelConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[provider]
	return cfg, ok
}

func (s *Store) SetLanguage(lang domain.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

func (s *Store) Language() domain.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *Store) SetSyncing(syncing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = syncing
}

func (s *Store) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncing
}

// Settings snapshots the persistable slice of the state: configs,
// active config and language. Sessions are deliberately excluded.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make(map[domain.Provider]domain.ModelConfig, len(s.configs))
	for p, c := range s.configs {
		configs[p] = c
	}
	return domain.Settings{
		Configs:      configs,
		ActiveConfig: s.activeConfig,
		Language:     s.language,
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) sessionCopy(id string) (domain.ChatSession, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return domain.ChatSession{}, false
	}
	sess := s.sessions[i]
	sess.Messages = copyMessages(sess.Messages)
	return sess, true
}

func copySessions(sessions []domain.ChatSession) []domain.ChatSession {
	out := make([]domain.ChatSession, len(sessions))
	for i, sess := range sessions {
		sess.Messages = copyMessages(sess.Messages)
		out[i] = sess
	}
	return out
}

func copyMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}
