package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-med/whitecard/internal/domain"
)

func analysisJSON(t *testing.T, id string, ts int64, reportType domain.ReportType) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(domain.MedicalAnalysis{
		ID:         id,
		Timestamp:  ts,
		ReportType: reportType,
		Summary:    "S",
		Disclaimer: "D",
		Dimensions: []domain.AnalysisDimension{{
			Title:      "T",
			Conclusion: "C",
			Highlights: []string{"h1", "h2"},
			Content:    "X",
			Severity:   domain.SeverityLow,
		}},
	})
	require.NoError(t, err)
	return raw
}

func TestMergeThreadsMatchesJoinedShape(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	sessions := []sessionRow{
		{ID: "s1", Title: "one", CreatedAt: now},
		{ID: "s2", Title: "two", CreatedAt: now.Add(time.Hour)},
	}
	messages := []messageRow{
		{ID: "m1", SessionID: "s1", Role: "assistant", Content: "a"},
		{ID: "m2", SessionID: "s1", Role: "user", Content: "b"},
		{ID: "m3", SessionID: "s2", Role: "assistant", Content: "c"},
	}

	merged := mergeThreads(sessions, messages)

	// Equivalent of the joined fetch over the same rows.
	joined := []thread{
		{sessionRow: sessions[0], Messages: []messageRow{messages[0], messages[1]}},
		{sessionRow: sessions[1], Messages: []messageRow{messages[2]}},
	}
	assert.Equal(t, joined, merged)

	fromMerged, err := threadsToSessions(merged)
	require.NoError(t, err)
	fromJoined, err := threadsToSessions(joined)
	require.NoError(t, err)
	assert.Equal(t, fromJoined, fromMerged)
}

func TestMergeThreadsSessionWithoutMessages(t *testing.T) {
	sessions := []sessionRow{{ID: "s1", Title: "lonely", CreatedAt: time.Now()}}
	merged := mergeThreads(sessions, nil)
	require.Len(t, merged, 1)
	assert.Empty(t, merged[0].Messages)
}

func TestThreadsToSessionsNewestFirst(t *testing.T) {
	now := time.Now()
	threads := []thread{
		{sessionRow: sessionRow{ID: "old", CreatedAt: now.Add(-time.Hour)}},
		{sessionRow: sessionRow{ID: "new", CreatedAt: now}},
		{sessionRow: sessionRow{ID: "mid", CreatedAt: now.Add(-time.Minute)}},
	}
	sessions, err := threadsToSessions(threads)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "mid", sessions[1].ID)
	assert.Equal(t, "old", sessions[2].ID)
}

func TestThreadsToSessionsRestoresMessageOrder(t *testing.T) {
	// Storage order puts the analysis message last; the embedded
	// analysis timestamp must pull it to the front, the rest keep
	// arrival order.
	threads := []thread{{
		sessionRow: sessionRow{ID: "s1", CreatedAt: time.Now()},
		Messages: []messageRow{
			{ID: "m2", SessionID: "s1", Role: "user", Content: "question"},
			{ID: "m3", SessionID: "s1", Role: "assistant", Content: "reply"},
			{ID: "m1", SessionID: "s1", Role: "assistant", Content: "seed",
				Analysis: analysisJSON(t, "a1", 1700000000000, domain.ReportCT)},
		},
	}}

	sessions, err := threadsToSessions(threads)
	require.NoError(t, err)
	msgs := sessions[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)

	// Report type is restored from the embedded analysis.
	assert.Equal(t, domain.ReportCT, msgs[0].ReportType)
	require.NotNil(t, msgs[0].Analysis)
	assert.Equal(t, "S", msgs[0].Analysis.Summary)
}

func TestClassifyFetchErrRecognizesMissingRelation(t *testing.T) {
	// undefined_table: the session_threads view does not exist on this
	// backend generation.
	err := classifyFetchErr(&pgconn.PgError{Code: "42P01", Message: `relation "session_threads" does not exist`})
	assert.ErrorIs(t, err, domain.ErrMissingRelation)

	// undefined_function: the aggregate the view relies on is missing.
	err = classifyFetchErr(&pgconn.PgError{Code: "42883", Message: "function jsonb_agg(record) does not exist"})
	assert.ErrorIs(t, err, domain.ErrMissingRelation)

	// Wrapped once more on the way up, the class is still recognizable.
	err = fmt.Errorf("fetch sessions: %w", classifyFetchErr(&pgconn.PgError{Code: "42P01"}))
	assert.ErrorIs(t, err, domain.ErrMissingRelation)
}

func TestClassifyFetchErrPassesOtherErrorsThrough(t *testing.T) {
	// Any other backend failure must not trigger the decomposed-fetch
	// fallback.
	err := classifyFetchErr(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	assert.NotErrorIs(t, err, domain.ErrMissingRelation)
	assert.Contains(t, err.Error(), "duplicate key value")

	err = classifyFetchErr(errors.New("connection reset"))
	assert.NotErrorIs(t, err, domain.ErrMissingRelation)
}

func TestThreadsToSessionsNullAnalysis(t *testing.T) {
	threads := []thread{{
		sessionRow: sessionRow{ID: "s1", CreatedAt: time.Now()},
		Messages: []messageRow{
			{ID: "m1", SessionID: "s1", Role: "user", Content: "hi", Analysis: json.RawMessage("null")},
		},
	}}
	sessions, err := threadsToSessions(threads)
	require.NoError(t, err)
	assert.Nil(t, sessions[0].Messages[0].Analysis)
}
