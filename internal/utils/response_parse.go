// Package utils holds small helpers shared across the model adapters.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject pulls the first top-level JSON object out of a raw
// model response, tolerating code fences and surrounding prose, and
// unmarshals it into out.
func ExtractJSONObject(raw string, out any) error {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}
