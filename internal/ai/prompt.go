package ai

import (
	"encoding/json"
	"fmt"

	"github.com/lumen-med/whitecard/internal/domain"
)

func targetLanguage(lang domain.Language) string {
	if lang == domain.LanguageEN {
		return "English"
	}
	return "Chinese (Simplified)"
}

func analysisSystemPrompt(lang domain.Language) string {
	return fmt.Sprintf(`You are a top-tier medical report interpreter.
Task: produce an extremely thorough reading of the uploaded report.

Respond with a single JSON object:
1. reportType: one of BLOOD, CT, MRI, ULTRASOUND, URINE, TUMOR_MARKER, LIVER_FUNCTION, UNKNOWN.
2. summary: the global conclusion over the whole report.
3. dimensions: an array of exactly 10 entries, each with:
   - title: name of the dimension.
   - conclusion: one core sentence.
   - highlights: an array of 2-3 key findings.
   - content: the in-depth clinical reading.
   - severity: one of "low", "medium", "high", "info".
   - visualHint: an icon keyword.
4. disclaimer: a professional disclaimer.

All text must be written in %s. Be precise and insightful.`, targetLanguage(lang))
}

func analysisUserPrompt(lang domain.Language) string {
	return fmt.Sprintf("Provide the deep analysis strictly in %s. Every dimension needs a conclusion and at least 2 highlights.", targetLanguage(lang))
}

func chatSystemPrompt(analysis *domain.MedicalAnalysis, lang domain.Language) string {
	dims, _ := json.Marshal(analysis.Dimensions)
	return fmt.Sprintf(`You are a medical report interpretation assistant.
Current case context:
- Report type: %s
- Core summary: %s
- Analysis details: %s

Reply rules:
1. No markdown headings (#, ##, ###) and no complex tables.
2. Use 【】 for section labels, e.g. 【Key definition】.
3. Leave a blank line between paragraphs.
4. Lead key points with ">>" on their own lines.
5. Structure: definition -> value interpretation -> clinical advice -> gentle reminder.
6. Answer entirely in %s.
7. Always close with: [This advice does not replace an in-person consultation].`,
		analysis.ReportType, analysis.Summary, dims, targetLanguage(lang))
}

// fallbackReply replaces an empty chat completion.
func fallbackReply(lang domain.Language) string {
	if lang == domain.LanguageEN {
		return "The assistant returned an empty reply. Please try again."
	}
	return "系统响应异常，请重试。"
}

// AcknowledgmentText is the fixed content of the seed message created
// after a successful analysis.
func AcknowledgmentText(lang domain.Language) string {
	if lang == domain.LanguageEN {
		return "Deep analysis complete. Ask follow-up questions about any detail of the report."
	}
	return "深度解读完成，您可以针对报告细节进行追问。"
}
