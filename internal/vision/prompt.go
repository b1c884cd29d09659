package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

const validateSystem = `You check dimensions on engineering drawings.
The image is a crop taken along the leader line of a numbered balloon callout.
A dimension table says which dimension the balloon refers to.
Find the dimension text nearest the leader and decide whether it is the same
value as the table entry. Ignore differences in spacing, letter case and the
style of diameter or degree symbols.

Return only a JSON object:
{"observedDimension": "<text exactly as drawn, empty if none>",
 "matches": <true|false>,
 "confidence": <0.0-1.0>,
 "notes": "<one short sentence>"}`

const discoverSystem = `You read dimensions on engineering drawings.
The image is a crop taken along the leader line of a numbered balloon callout.
Report the dimension text the leader points at.

Return only a JSON object:
{"observedDimension": "<text exactly as drawn, empty if none>",
 "matches": false,
 "confidence": <0.0-1.0>,
 "notes": "<one short sentence>"}`

func validatePrompt(req Request) string {
	return fmt.Sprintf("Balloon %d. Table dimension: %q. Capture size %s.", req.Number, req.Expected, req.Size)
}

func discoverPrompt(req Request) string {
	return fmt.Sprintf("Balloon %d. No table entry. Capture size %s.", req.Number, req.Size)
}

// StripCodeFences removes a Markdown code fence around a model reply.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseReading decodes a model reply into a Reading. Confidence is clamped
// to [0, 1] and the observed text trimmed.
func ParseReading(reply string) (*Reading, error) {
	txt := StripCodeFences(reply)
	if txt == "" {
		return nil, fmt.Errorf("empty response")
	}
	var r Reading
	if err := json.Unmarshal([]byte(txt), &r); err != nil {
		return nil, fmt.Errorf("bad JSON: %w", err)
	}
	r.Observed = strings.TrimSpace(r.Observed)
	r.Confidence = max(0, min(1, r.Confidence))
	return &r, nil
}
