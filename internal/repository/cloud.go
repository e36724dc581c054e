package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-med/whitecard/internal/domain"
)

// CloudStore is the typed adapter over the hosted backend. It holds no
// mutable state of its own; all records are keyed by client-generated
// ids so every write is an idempotent upsert.
type CloudStore struct {
	pool *pgxpool.Pool
}

func NewCloudStore(pool *pgxpool.Pool) *CloudStore {
	return &CloudStore{pool: pool}
}

func (c *CloudStore) UpsertSession(ctx context.Context, userID string, sess domain.ChatSession) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, title, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
		sess.ID, userID, sess.Title, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// UpsertMessages writes the whole message list of one session as a
// single batch, not a round trip per row.
func (c *CloudStore) UpsertMessages(ctx context.Context, sessionID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range msgs {
		var analysis []byte
		if m.Analysis != nil {
			var err error
			analysis, err = json.Marshal(m.Analysis)
			if err != nil {
				return fmt.Errorf("marshal analysis for message %s: %w", m.ID, err)
			}
		}
		var image *string
		if m.Image != "" {
			image = &m.Image
		}
		batch.Queue(`
			INSERT INTO messages (id, session_id, role, content, analysis, image)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				analysis = EXCLUDED.analysis,
				image = EXCLUDED.image`,
			m.ID, sessionID, string(m.Role), m.Content, analysis, image)
	}

	br := c.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range msgs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert messages: %w", err)
		}
	}
	return nil
}

// DeleteSession removes the session row; messages go with it through
// the ON DELETE CASCADE constraint.
func (c *CloudStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (c *CloudStore) UpsertFeedback(ctx context.Context, messageID, userID string, fb domain.Feedback) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO feedback (message_id, user_id, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO UPDATE SET type = EXCLUDED.type`,
		messageID, userID, string(fb))
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// FetchSessions loads every session of the user with its nested
// messages. The fast path reads the session_threads view; when the
// backend generation does not expose it yet, two plain selects plus an
// in-memory join produce the identical shape.
func (c *CloudStore) FetchSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	threads, err := c.fetchJoined(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrMissingRelation) {
			return nil, err
		}
		threads, err = c.fetchDecomposed(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	return threadsToSessions(threads)
}

type sessionRow struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

type messageRow struct {
	ID        string          `json:"id"`
	SessionID string          `json:"-"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Analysis  json.RawMessage `json:"analysis"`
	Image     *string         `json:"image"`
}

type thread struct {
	sessionRow
	Messages []messageRow
}

func (c *CloudStore) fetchJoined(ctx context.Context, userID string) ([]thread, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, title, created_at, messages
		FROM session_threads
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, classifyFetchErr(err)
	}
	defer rows.Close()

	var threads []thread
	for rows.Next() {
		var t thread
		var raw []byte
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan session thread: %w", err)
		}
		if err := json.Unmarshal(raw, &t.Messages); err != nil {
			return nil, fmt.Errorf("decode thread messages: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyFetchErr(err)
	}
	return threads, nil
}

func (c *CloudStore) fetchDecomposed(ctx context.Context, userID string) ([]thread, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, title, created_at
		FROM sessions
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (sessionRow, error) {
		var s sessionRow
		err := row.Scan(&s.ID, &s.Title, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}

	msgRows, err := c.pool.Query(ctx, `
		SELECT id, session_id, role, content, analysis, image
		FROM messages
		WHERE session_id = ANY($1)
		ORDER BY created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	messages, err := pgx.CollectRows(msgRows, func(row pgx.CollectableRow) (messageRow, error) {
		var m messageRow
		var analysis []byte
		err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &analysis, &m.Image)
		m.Analysis = analysis
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	return mergeThreads(sessions, messages), nil
}

// mergeThreads joins message rows onto their sessions by session id,
// preserving the given (chronological) message order.
func mergeThreads(sessions []sessionRow, messages []messageRow) []thread {
	bySession := make(map[string][]messageRow, len(sessions))
	for _, m := range messages {
		bySession[m.SessionID] = append(bySession[m.SessionID], m)
	}
	threads := make([]thread, len(sessions))
	for i, s := range sessions {
		threads[i] = thread{sessionRow: s, Messages: bySession[s.ID]}
	}
	return threads
}

// threadsToSessions maps storage rows onto domain sessions, restoring
// deterministic order: sessions newest first, messages by the embedded
// analysis timestamp when present, else arrival order.
func threadsToSessions(threads []thread) ([]domain.ChatSession, error) {
	sessions := make([]domain.ChatSession, 0, len(threads))
	for _, t := range threads {
		msgs := make([]domain.Message, 0, len(t.Messages))
		for _, m := range t.Messages {
			msg := domain.Message{
				ID:      m.ID,
				Role:    domain.Role(m.Role),
				Content: m.Content,
			}
			if m.Image != nil {
				msg.Image = *m.Image
			}
			if len(m.Analysis) > 0 && string(m.Analysis) != "null" {
				var analysis domain.MedicalAnalysis
				if err := json.Unmarshal(m.Analysis, &analysis); err != nil {
					return nil, fmt.Errorf("decode analysis for message %s: %w", m.ID, err)
				}
				msg.Analysis = &analysis
				msg.ReportType = analysis.ReportType
			}
			msgs = append(msgs, msg)
		}
		sortMessages(msgs)
		sessions = append(sessions, domain.ChatSession{
			ID:        t.ID,
			Title:     t.Title,
			CreatedAt: t.CreatedAt,
			Messages:  msgs,
		})
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// sortMessages restores display order without trusting storage order:
// analysis-bearing messages sort by their embedded timestamp and come
// before the follow-up conversation, which keeps arrival order. The
// seed upload message always carries the analysis, so this reproduces
// chronological creation order even when created_at ties within one
// batch upsert.
func sortMessages(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i].Analysis, msgs[j].Analysis
		switch {
		case a != nil && b != nil:
			return a.Timestamp < b.Timestamp
		case a != nil:
			return true
		default:
			return false
		}
	})
}

// classifyFetchErr recognizes the backend-schema-drift class of errors:
// the session_threads relation is missing on an older generation. That
// condition is recovered internally and never surfaced to the user.
func classifyFetchErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// undefined_table / undefined_function: the view (or the json
		// aggregate it relies on) is not visible on this generation.
		if pgErr.Code == "42P01" || pgErr.Code == "42883" {
			return fmt.Errorf("%w: %s", domain.ErrMissingRelation, pgErr.Message)
		}
	}
	return fmt.Errorf("fetch session threads: %w", err)
}
