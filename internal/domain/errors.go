package domain

import "errors"

var (
	ErrNotSignedIn           = errors.New("not signed in")
	ErrSessionNotFound       = errors.New("session not found")
	ErrNoAnalysis            = errors.New("no analysis in session")
	ErrAnalysisInFlight      = errors.New("analysis already in progress")
	ErrChatInFlight          = errors.New("reply already in progress")
	ErrEmptyAnalysis         = errors.New("analysis payload incomplete")
	ErrEngineFailure         = errors.New("AI engine error")
	ErrMissingRelation       = errors.New("session thread relation not available")
	ErrQuotaExceeded         = errors.New("local storage quota exceeded")
	ErrProviderNotConfigured = errors.New("provider not configured")
)
