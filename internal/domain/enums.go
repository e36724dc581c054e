package domain

// Provider identifies an AI backend a ModelConfig points at.
type Provider string

const (
	ProviderGemini  Provider = "GEMINI"
	ProviderFastGPT Provider = "FASTGPT"
	ProviderDify    Provider = "DIFY"
	ProviderZhipu   Provider = "ZHIPU"
	ProviderCustom  Provider = "CUSTOM"
)

// Providers lists every known provider in display order.
var Providers = []Provider{
	ProviderGemini,
	ProviderFastGPT,
	ProviderDify,
	ProviderZhipu,
	ProviderCustom,
}

// ReportType classifies an uploaded medical report.
type ReportType string

const (
	ReportBlood         ReportType = "BLOOD"
	ReportCT            ReportType = "CT"
	ReportMRI           ReportType = "MRI"
	ReportUltrasound    ReportType = "ULTRASOUND"
	ReportUrine         ReportType = "URINE"
	ReportTumorMarker   ReportType = "TUMOR_MARKER"
	ReportLiverFunction ReportType = "LIVER_FUNCTION"
	ReportUnknown       ReportType = "UNKNOWN"
)

// ParseReportType maps a free string onto a known report type,
// defaulting to UNKNOWN. Structured model output is never trusted
// to stay inside the enum.
func ParseReportType(s string) ReportType {
	switch ReportType(s) {
	case ReportBlood, ReportCT, ReportMRI, ReportUltrasound,
		ReportUrine, ReportTumorMarker, ReportLiverFunction:
		return ReportType(s)
	default:
		return ReportUnknown
	}
}

type Language string

const (
	LanguageZH Language = "ZH"
	LanguageEN Language = "EN"
)

// Severity grades a single analysis dimension.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeverityInfo   Severity = "info"
)

// ParseSeverity clamps unknown values to info.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

// Feedback is the user's rating of an assistant message.
// The zero value means no rating was given.
type Feedback string

const (
	FeedbackNone Feedback = ""
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
)

// Role of a chat message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
