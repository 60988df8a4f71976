package chat

import "strings"

// FormatResponse trims the text and normalizes paragraph breaks to one blank line.
func FormatResponse(text string) string {
	text = strings.TrimSpace(text)
	parts := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// DefaultLanguage is used when a request or a stored record names none.
const DefaultLanguage = "English"

func NormalizeLanguage(language string) string {
	if l := strings.TrimSpace(language); l != "" {
		return l
	}
	return DefaultLanguage
}
