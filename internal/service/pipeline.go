package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-med/whitecard/internal/ai"
	"github.com/lumen-med/whitecard/internal/domain"
	"github.com/lumen-med/whitecard/internal/store"
)

// ClientFactory builds the AI client for the active model config.
type ClientFactory func(cfg domain.ModelConfig) (ai.Client, error)

// Pipeline drives the two request flows: upload → structured analysis
// → new session, and chat text → reply → appended message. At most one
// of each may be in flight; the boolean flags stay observable so the
// caller can keep its surface responsive instead of locking up.
type Pipeline struct {
	store     *store.Store
	syncer    *Syncer
	newClient ClientFactory

	mu        sync.Mutex
	analyzing bool
	thinking  bool
}

func NewPipeline(st *store.Store, syncer *Syncer, factory ClientFactory) *Pipeline {
	return &Pipeline{store: st, syncer: syncer, newClient: factory}
}

func (p *Pipeline) IsAnalyzing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analyzing
}

func (p *Pipeline) IsThinking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thinking
}

// AnalyzeReport runs the upload flow. On success the new session is
// already in the store and pushed remotely. A push failure still
// returns the created session together with the error: local state is
// authoritative and is not rolled back.
func (p *Pipeline) AnalyzeReport(ctx context.Context, imageBase64 string, reportType domain.ReportType) (*domain.ChatSession, error) {
	user := p.store.User()
	if user == nil {
		return nil, domain.ErrNotSignedIn
	}

	p.mu.Lock()
	if p.analyzing {
		p.mu.Unlock()
		return nil, domain.ErrAnalysisInFlight
	}
	p.analyzing = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.analyzing = false
		p.mu.Unlock()
	}()

	client, err := p.newClient(p.store.ActiveConfig())
	if err != nil {
		return nil, err
	}

	lang := p.store.Language()
	analysis, err := client.Analyze(ctx, imageBase64, reportType, lang)
	if err != nil {
		// No partial session on failure.
		return nil, fmt.Errorf("%w: %w", domain.ErrEngineFailure, err)
	}

	seed := domain.Message{
		ID:         uuid.NewString(),
		Role:       domain.RoleAssistant,
		Content:    ai.AcknowledgmentText(lang),
		Analysis:   analysis,
		Image:      ai.EnsureDataURL(imageBase64),
		ReportType: analysis.ReportType,
	}
	now := time.Now()
	sess := domain.ChatSession{
		ID:        uuid.NewString(),
		Title:     fmt.Sprintf("%s report - %s", analysis.ReportType, now.Format("2006-01-02")),
		Messages:  []domain.Message{seed},
		CreatedAt: now,
	}
	p.store.AddSession(sess)

	if err := p.syncer.PushSession(ctx, sess); err != nil {
		return &sess, err
	}
	return &sess, nil
}

// SendMessage runs the chat flow against the current session. It
// requires a current session holding a prior analysis, otherwise the
// call is refused before anything changes. The user message is applied
// optimistically and survives a failed reply. A reply that resolves
// after its session was deleted is discarded, not resurrected.
func (p *Pipeline) SendMessage(ctx context.Context, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	sess, ok := p.store.CurrentSession()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	analysis := sess.LastAnalysis()
	if analysis == nil {
		return nil, domain.ErrNoAnalysis
	}

	p.mu.Lock()
	if p.thinking {
		p.mu.Unlock()
		return nil, domain.ErrChatInFlight
	}
	p.thinking = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.thinking = false
		p.mu.Unlock()
	}()

	client, err := p.newClient(p.store.ActiveConfig())
	if err != nil {
		return nil, err
	}

	userMsg := domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: text}
	msgs := append(sess.Messages, userMsg)
	p.store.UpdateSession(sess.ID, domain.SessionPatch{Messages: msgs})

	// History goes out as role and text only, stripped of analyses and
	// images.
	history := make([]ai.Turn, len(msgs))
	for i, m := range msgs {
		history[i] = ai.Turn{Role: m.Role, Content: m.Content}
	}

	reply, err := client.Chat(ctx, history, analysis, p.store.Language())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEngineFailure, err)
	}

	current, ok := p.store.Session(sess.ID)
	if !ok {
		slog.Warn("discarding reply for deleted session", "session_id", sess.ID)
		return nil, domain.ErrSessionNotFound
	}

	assistant := domain.Message{ID: uuid.NewString(), Role: domain.RoleAssistant, Content: reply}
	p.store.UpdateSession(sess.ID, domain.SessionPatch{Messages: append(current.Messages, assistant)})

	updated, _ := p.store.Session(sess.ID)
	if err := p.syncer.PushSession(ctx, updated); err != nil {
		return &assistant, err
	}
	return &assistant, nil
}
