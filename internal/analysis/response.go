package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"CourtMonitor/internal/domain"
)

const rawPreviewLength = 500

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

var errNotObject = errors.New("response is not a JSON object")

// stripFences removes a Markdown code fence wrapping the whole response.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseDocumentResult validates and decodes the fixed-shape extraction object.
func parseDocumentResult(raw string) (domain.DocumentResult, error) {
	cleaned := stripFences(raw)
	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") || !json.Valid([]byte(cleaned)) {
		return domain.DocumentResult{}, fmt.Errorf("%w: %s", errNotObject, preview(raw))
	}

	var result domain.DocumentResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return domain.DocumentResult{}, fmt.Errorf("decode response: %v: %s", err, preview(raw))
	}
	return result, nil
}

func preview(raw string) string {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) <= rawPreviewLength {
		return string(runes)
	}
	return string(runes[:rawPreviewLength]) + "..."
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
