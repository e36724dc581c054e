package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-med/whitecard/internal/domain"
)

const validPayload = `{
	"reportType": "CT",
	"summary": "S",
	"disclaimer": "D",
	"dimensions": [
		{"title": "T", "conclusion": "C", "highlights": ["h1", "h2"], "content": "X", "severity": "low"}
	]
}`

func TestParseAnalysisValid(t *testing.T) {
	analysis, err := parseAnalysis([]byte(validPayload), domain.ReportUnknown)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportCT, analysis.ReportType)
	assert.Equal(t, "S", analysis.Summary)
	assert.Equal(t, "D", analysis.Disclaimer)
	require.Len(t, analysis.Dimensions, 1)
	assert.Equal(t, domain.SeverityLow, analysis.Dimensions[0].Severity)
	assert.NotEmpty(t, analysis.ID)
	assert.Positive(t, analysis.Timestamp)
}

func TestParseAnalysisMissingDimensions(t *testing.T) {
	payload := `{"reportType": "CT", "summary": "S", "disclaimer": "D"}`
	_, err := parseAnalysis([]byte(payload), domain.ReportCT)
	assert.ErrorIs(t, err, domain.ErrEmptyAnalysis)
}

func TestParseAnalysisBlankSummary(t *testing.T) {
	payload := `{"reportType": "CT", "summary": "  ", "disclaimer": "D",
		"dimensions": [{"title": "T", "conclusion": "C", "highlights": ["h"], "content": "X", "severity": "low"}]}`
	_, err := parseAnalysis([]byte(payload), domain.ReportCT)
	assert.ErrorIs(t, err, domain.ErrEmptyAnalysis)
}

func TestParseAnalysisMalformedJSON(t *testing.T) {
	_, err := parseAnalysis([]byte("not json"), domain.ReportCT)
	assert.Error(t, err)
}

func TestParseAnalysisClampsEnums(t *testing.T) {
	payload := `{
		"reportType": "HOLOGRAM",
		"summary": "S",
		"disclaimer": "D",
		"dimensions": [
			{"title": "T", "conclusion": "C", "highlights": ["h"], "content": "X", "severity": "catastrophic"}
		]
	}`
	analysis, err := parseAnalysis([]byte(payload), domain.ReportMRI)
	require.NoError(t, err)
	// Unknown report type falls back to the user-declared category.
	assert.Equal(t, domain.ReportMRI, analysis.ReportType)
	assert.Equal(t, domain.SeverityInfo, analysis.Dimensions[0].Severity)
}

func TestParseAnalysisStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	analysis, err := parseAnalysis([]byte(fenced), domain.ReportUnknown)
	require.NoError(t, err)
	assert.Equal(t, "S", analysis.Summary)
}

func TestDataURLHelpers(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,abc", EnsureDataURL("abc"))
	assert.Equal(t, "data:image/png;base64,x", EnsureDataURL("data:image/png;base64,x"))
	assert.Equal(t, "abc", StripDataURL("data:image/jpeg;base64,abc"))
	assert.Equal(t, "abc", StripDataURL("abc"))
}
