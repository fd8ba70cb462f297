package oracle

import (
	"encoding/json"
	"strings"
)

// PayloadKind tags what the oracle actually returned.
type PayloadKind int

const (
	// PayloadJSON means a JSON object or array was recovered from the text.
	PayloadJSON PayloadKind = iota
	// PayloadFreeText means the reply is non-empty prose with no usable JSON.
	PayloadFreeText
	// PayloadMalformed means the reply is empty or unusable.
	PayloadMalformed
)

// Payload is the classified oracle response. Stages must switch on Kind
// rather than assume structure; the fallback path is a first-class branch.
type Payload struct {
	Kind PayloadKind
	// JSON holds the raw recovered JSON when Kind is PayloadJSON.
	JSON json.RawMessage
	// Text holds the original reply text.
	Text string
}

// Decode unmarshals the recovered JSON into v. Only valid for PayloadJSON.
func (p Payload) Decode(v any) error {
	return json.Unmarshal(p.JSON, v)
}

// ParsePayload classifies oracle output. It tolerates markdown code fences,
// leading prose before the JSON object, and trailing commentary; truncated
// or invalid JSON degrades to FreeText (or Malformed when empty).
func ParsePayload(text string) Payload {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Payload{Kind: PayloadMalformed, Text: text}
	}

	candidate := extractJSON(trimmed)
	if candidate != "" && json.Valid([]byte(candidate)) {
		return Payload{Kind: PayloadJSON, JSON: json.RawMessage(candidate), Text: text}
	}

	return Payload{Kind: PayloadFreeText, Text: text}
}

// extractJSON strips markdown code fences and slices out the outermost JSON
// object or array. Returns "" when no candidate is present.
func extractJSON(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start, closer := objStart, "}"
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start, closer = arrStart, "]"
	}
	if start < 0 {
		return ""
	}

	end := strings.LastIndex(text, closer)
	if end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
