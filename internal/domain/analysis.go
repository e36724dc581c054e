package domain

// AnalysisDimension is one structured facet of a report interpretation.
// Immutable once produced by the analysis pipeline.
type AnalysisDimension struct {
	Title      string   `json:"title"`
	Conclusion string   `json:"conclusion"`
	Highlights []string `json:"highlights"`
	Content    string   `json:"content"`
	Severity   Severity `json:"severity"`
	VisualHint string   `json:"visualHint,omitempty"`
}

// MedicalAnalysis is the structured interpretation of one uploaded report.
// Timestamp is unix milliseconds and doubles as the deterministic ordering
// key when messages are reconstructed from storage.
type MedicalAnalysis struct {
	ID                    string              `json:"id"`
	Timestamp             int64               `json:"timestamp"`
	ReportType            ReportType          `json:"reportType"`
	Dimensions            []AnalysisDimension `json:"dimensions"`
	Summary               string              `json:"summary"`
	Disclaimer            string              `json:"disclaimer"`
	GeneratedIllustration string              `json:"generatedIllustration,omitempty"`
}
