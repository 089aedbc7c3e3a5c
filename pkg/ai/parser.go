package ai

import (
	"regexp"
	"strconv"
	"strings"
)

// Section headers the grading prompt instructs the model to emit. The model is
// untrusted with respect to formatting, so every extraction below degrades
// instead of failing when a header is missing.
const (
	headerGrade       = "OVERALL GRADE:"
	headerWeaknesses  = "AREAS FOR IMPROVEMENT:"
	headerFeedback    = "DETAILED FEEDBACK:"
	headerSuggestions = "RECOMMENDATIONS:"
	headerClosing     = "CONCLUDING REMARKS:"
)

var gradePattern = regexp.MustCompile(`OVERALL GRADE:\s*\n?\s*(\d+)`)

// ParseEvaluation extracts {grade, feedback, suggestions} from a raw model
// response. It never returns an error: header absence degrades through the
// documented fallback chain and a missing grade yields a nil Grade.
func ParseEvaluation(raw string) EvaluationResult {
	result := EvaluationResult{
		Grade:       parseGrade(raw),
		Feedback:    parseFeedback(raw),
		Suggestions: parseSuggestions(raw),
		Raw:         raw,
	}

	return result
}

func parseGrade(raw string) *int {
	match := gradePattern.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}

	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	return &value
}

func parseFeedback(raw string) string {
	if section, ok := sectionBetween(raw, headerFeedback, headerSuggestions); ok {
		return section
	}

	if section, ok := sectionBetween(raw, headerWeaknesses, headerClosing); ok {
		return section
	}

	// Last resort: never silently drop model output.
	return strings.TrimSpace(raw)
}

func parseSuggestions(raw string) []string {
	section, ok := sectionBetween(raw, headerSuggestions, headerClosing)
	if !ok {
		return []string{}
	}

	lines := strings.Split(section, "\n")
	suggestions := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := strings.TrimSpace(line)
		cleaned = strings.TrimLeft(cleaned, "-*• \t")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		suggestions = append(suggestions, cleaned)
	}

	return suggestions
}

// sectionBetween returns the text strictly between the start header and the
// end header. A missing end header extends the section to the end of the
// response; a missing start header reports no section at all.
func sectionBetween(raw, start, end string) (string, bool) {
	startIdx := strings.Index(raw, start)
	if startIdx < 0 {
		return "", false
	}

	section := raw[startIdx+len(start):]
	if endIdx := strings.Index(section, end); endIdx >= 0 {
		section = section[:endIdx]
	}

	return strings.TrimSpace(section), true
}
