package oracle

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	arraySpan = regexp.MustCompile(`(?s)\[.*\]`)
	digitRun  = regexp.MustCompile(`\d+(?:,\d{3})*`)
)

// ExtractStringArray pulls a JSON array of strings out of model output.
// It tries the whole text first, then the outermost [...] span. Non-string
// elements are dropped. Anything unparseable yields an empty slice.
func ExtractStringArray(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	if out, ok := decodeStrings(text); ok {
		return out
	}

	span := arraySpan.FindString(text)
	if span == "" {
		return []string{}
	}
	if out, ok := decodeStrings(span); ok {
		return out
	}
	return []string{}
}

func decodeStrings(raw string) ([]string, bool) {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// ExtractInt returns the first integer in text. Thousands separators are
// accepted ("5,240" is 5240). It reports false when no digits are found or
// the number overflows.
func ExtractInt(text string) (int, bool) {
	match := digitRun.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
