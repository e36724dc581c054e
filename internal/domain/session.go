package domain

import "time"

// Message is one entry in a session's conversation. A message carrying
// Analysis is the structured reply to an upload; without it the message
// is plain user text or a plain assistant reply.
type Message struct {
	ID         string           `json:"id"`
	Role       Role             `json:"role"`
	Content    string           `json:"content"`
	Analysis   *MedicalAnalysis `json:"analysis,omitempty"`
	Image      string           `json:"image,omitempty"`
	ReportType ReportType       `json:"reportType,omitempty"`
	Feedback   Feedback         `json:"feedback,omitempty"`
}

// ChatSession is one uploaded report plus its follow-up conversation.
// Created exactly once at upload time with a single seed message, then
// grown by appending messages. IDs are client-generated and used as
// upsert keys, so re-saving a session is idempotent.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// LastAnalysis returns the analysis of the most recent message that
// carries one, scanning in reverse. Nil when the session holds none.
func (s *ChatSession) LastAnalysis() *MedicalAnalysis {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Analysis != nil {
			return s.Messages[i].Analysis
		}
	}
	return nil
}

// SessionPatch is a partial session update. Nil fields are left untouched.
type SessionPatch struct {
	Title    *string
	Messages []Message
}
