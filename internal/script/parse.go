package script

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hykvra/AI-Video-Creator/pkg/jsonrepair"
)

// Parse turns model output into a Script. A strict parse is attempted
// first; on failure the payload gets one repair pass for truncation
// damage before the second and final attempt. The top level may be
// either a scenes array or an object with a scenes field; anything else
// is a schema error.
func Parse(content string) (*Script, error) {
	content = stripCodeFence(content)

	parsed, err := parseShape(content)
	if err == nil {
		return parsed, nil
	}
	if _, ok := err.(*schemaError); ok {
		return nil, err
	}

	repaired := jsonrepair.Repair(content)
	parsed, repairErr := parseShape(repaired)
	if repairErr != nil {
		return nil, fmt.Errorf("parse script response: %w", err)
	}
	return parsed, nil
}

type schemaError struct{ shape string }

func (e *schemaError) Error() string {
	return fmt.Sprintf("script response has unsupported top-level shape: %s", e.shape)
}

func parseShape(content string) (*Script, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("empty script response")
	}

	switch trimmed[0] {
	case '[':
		var scenes []Scene
		if err := json.Unmarshal([]byte(trimmed), &scenes); err != nil {
			return nil, err
		}
		return &Script{Scenes: scenes}, nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
			return nil, err
		}
		if _, ok := probe["scenes"]; !ok {
			return nil, &schemaError{shape: "object without scenes field"}
		}
		var s Script
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return nil, &schemaError{shape: "not an object or array"}
	}
}

// stripCodeFence removes a surrounding markdown fence that some models
// insist on adding around JSON.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
