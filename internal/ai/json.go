package ai

import "strings"

// CleanJSON removes markdown code fences if present (e.g. ```json ... ```).
// JSON mode should make this unnecessary, but models still wrap output occasionally.
func CleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
