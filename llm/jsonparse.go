package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding markdown code fence such as
// "```json ... ```". Text without a leading fence is only trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseJSON strips a code fence and decodes the model output as-is.
func ParseJSON(output string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(StripCodeFence(output)), &v); err != nil {
		return nil, fmt.Errorf("llm: parse model output: %w", err)
	}
	return v, nil
}
