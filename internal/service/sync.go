package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
	"github.com/lumen-med/whitecard/internal/store"
)

// CloudStore is what the orchestrator needs from the remote backend.
type CloudStore interface {
	UpsertSession(ctx context.Context, userID string, sess domain.ChatSession) error
	UpsertMessages(ctx context.Context, sessionID string, msgs []domain.Message) error
	DeleteSession(ctx context.Context, id string) error
	FetchSessions(ctx context.Context, userID string) ([]domain.ChatSession, error)
	UpsertFeedback(ctx context.Context, messageID, userID string, fb domain.Feedback) error
}

// SettingsSlot is the local persistence slot.
type SettingsSlot interface {
	Load() (domain.Settings, bool, error)
	Save(domain.Settings) error
	PurgeLegacy() error
}

// Syncer reacts to identity transitions with the one-time remote pull
// and turns local mutations into remote pushes. Local state is
// optimistic and authoritative for the running process: a failed push
// is surfaced but never rolled back.
type Syncer struct {
	store *store.Store
	cloud CloudStore
	slot  SettingsSlot

	detached sync.WaitGroup
}

func NewSyncer(st *store.Store, cloud CloudStore, slot SettingsSlot) *Syncer {
	return &Syncer{store: st, cloud: cloud, slot: slot}
}

// SetUser handles both identity transitions. Sign-in triggers the full
// remote fetch with the sync flag raised; the fetched list replaces the
// local one wholesale (remote is authoritative at login). Sign-out
// clears everything locally and makes no remote call. Re-setting the
// same identity is a no-op: synchronization is push-only after the
// initial pull.
func (s *Syncer) SetUser(ctx context.Context, profile *domain.UserProfile) error {
	if profile == nil {
		s.store.SetUser(nil)
		s.store.SetSessions(nil)
		s.store.SetCurrentSessionID("")
		return nil
	}

	prev := s.store.User()
	s.store.SetUser(profile)
	if prev != nil && prev.ID == profile.ID {
		return nil
	}

	s.store.SetSyncing(true)
	defer s.store.SetSyncing(false)

	sessions, err := s.cloud.FetchSessions(ctx, profile.ID)
	if err != nil {
		// Session list stays at its last-known value.
		return s.classify(fmt.Errorf("fetch sessions: %w", err))
	}
	s.store.SetSessions(sessions)

	if err := s.slot.Save(s.store.Settings()); err != nil {
		return s.classify(err)
	}
	return nil
}

// PushSession writes the session row and its whole message list to the
// backend. Ids are the conflict keys, so re-pushing an unchanged
// session is harmless.
func (s *Syncer) PushSession(ctx context.Context, sess domain.ChatSession) error {
	user := s.store.User()
	if user == nil {
		return domain.ErrNotSignedIn
	}
	if err := s.cloud.UpsertSession(ctx, user.ID, sess); err != nil {
		return fmt.Errorf("push session: %w", err)
	}
	if err := s.cloud.UpsertMessages(ctx, sess.ID, sess.Messages); err != nil {
		return fmt.Errorf("push messages: %w", err)
	}
	return nil
}

// DeleteSession removes the session locally and fires the remote
// delete detached from the mutation: deletion never blocks the UI, a
// remote failure is logged and not surfaced.
func (s *Syncer) DeleteSession(id string) bool {
	if !s.store.DeleteSession(id) {
		return false
	}
	s.detached.Add(1)
	go func() {
		defer s.detached.Done()
		ctx, cancel := context.WithTimeout(context.Background(), config.DetachedWriteTimeout)
		defer cancel()
		if err := s.cloud.DeleteSession(ctx, id); err != nil {
			slog.Error("remote session delete failed", "session_id", id, "error", err)
		}
	}()
	return true
}

// SubmitFeedback toggles the rating locally (optimistic and sticky)
// and upserts it remotely keyed on (message_id, user_id); remote
// failure is logged only.
func (s *Syncer) SubmitFeedback(sessionID, messageID string, fb domain.Feedback) bool {
	user := s.store.User()
	if user == nil {
		return false
	}
	if !s.store.SetMessageFeedback(sessionID, messageID, fb) {
		return false
	}
	s.detached.Add(1)
	go func() {
		defer s.detached.Done()
		ctx, cancel := context.WithTimeout(context.Background(), config.DetachedWriteTimeout)
		defer cancel()
		if err := s.cloud.UpsertFeedback(ctx, messageID, user.ID, fb); err != nil {
			slog.Error("feedback submission failed", "message_id", messageID, "error", err)
		}
	}()
	return true
}

// Wait blocks until every detached remote write has finished. Callers
// that are about to exit use it to drain in-flight deletes and ratings.
func (s *Syncer) Wait() {
	s.detached.Wait()
}

// SaveSettings persists the current configs and language to the slot.
func (s *Syncer) SaveSettings() error {
	if err := s.slot.Save(s.store.Settings()); err != nil {
		return s.classify(err)
	}
	return nil
}

// classify applies the quota self-healing path: purge superseded slot
// generations so a reload starts clean. Every other failure passes
// through for the caller to surface.
func (s *Syncer) classify(err error) error {
	if errors.Is(err, domain.ErrQuotaExceeded) {
		if perr := s.slot.PurgeLegacy(); perr != nil {
			slog.Error("legacy slot purge failed", "error", perr)
		}
	}
	return err
}

// UserMessage renders an error from the sync paths as the short
// categorized string shown to the user. Provider failures carry their
// own category and keep it; everything else surfaced here was a sync
// operation.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "Local cache is full. Superseded data was purged automatically; please restart the app."
	case errors.Is(err, domain.ErrEngineFailure):
		return err.Error()
	default:
		return "Sync failed: " + err.Error()
	}
}
