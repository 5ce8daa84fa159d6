// Package json pulls JSON objects out of free-form model replies.
//
// Evaluator and QA replies often wrap the object in prose or a markdown
// fence. Object finds the first balanced, valid object anywhere in the text.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

const previewLen = 100

// Object returns the first valid JSON object embedded in reply.
// Fenced blocks (```json ... ``` or ``` ... ```) are searched first.
// Braces inside JSON strings do not affect matching.
func Object(reply string) (string, error) {
	for _, candidate := range []string{fenced(reply), reply} {
		if candidate == "" {
			continue
		}
		if obj, ok := firstObject(candidate); ok {
			return obj, nil
		}
	}
	return "", fmt.Errorf("no JSON object in reply: %q", preview(reply))
}

// Decode extracts the first JSON object in reply and unmarshals it into T.
func Decode[T any](reply string) (T, error) {
	var result T
	obj, err := Object(reply)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// fenced returns the body of the first markdown code fence, or "".
func fenced(reply string) string {
	start := strings.Index(reply, "```")
	if start == -1 {
		return ""
	}
	body := reply[start+3:]
	// Drop the info string ("json", "JSON", ...) up to the first newline.
	if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.Contains(body[:nl], "{") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// firstObject tries every '{' in s as an object start and returns the first
// balanced span that is valid JSON.
func firstObject(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end, ok := matchBrace(s, i)
		if !ok {
			continue
		}
		if obj := s[i : end+1]; json.Valid([]byte(obj)) {
			return obj, true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at s[open].
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > previewLen {
		return string(runes[:previewLen]) + "..."
	}
	return s
}
