package intake

import (
	"strings"

	"permitnorm/internal/sheet"
)

type DetectResult struct {
	IsExport bool
	Score    float64
	Reason   string
}

var detectKeywords = []string{"permit", "inspection", "export", "report", "ahj", "solarapp", "issued", "finaled"}

// DetectExport scores an email as an AHJ permit export. An email is only an
// export when it carries at least one attachment the loaders can read.
func DetectExport(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	hasSheet := false
	for _, name := range attachmentNames {
		if sheet.Supported(name) {
			hasSheet = true
			break
		}
	}
	if !hasSheet {
		return DetectResult{Reason: "no_export_attachment"}
	}

	score := 0.4
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.05
		}
	}
	for _, name := range attachmentNames {
		if strings.Contains(strings.ToLower(name), "permit") {
			score += 0.2
			break
		}
	}
	if score > 1 {
		score = 1
	}

	isExport := score >= 0.6
	reason := "rules_negative"
	if isExport {
		reason = "rules_positive"
	}
	return DetectResult{IsExport: isExport, Score: score, Reason: reason}
}
