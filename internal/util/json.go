// Package util provides environment variable parsing helpers shared across components.
//
// This file holds helpers for extracting JSON payloads from AI model output.
package util

import "strings"

// ExtractJSON strips markdown code fences from model output, returning the
// inner payload. Models frequently wrap JSON answers in ```json fences even
// when instructed not to.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	return s
}
