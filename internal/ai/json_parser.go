package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Model output is JSON by instruction, but in practice arrives wrapped in
// code fences, with trailing commas, or embedded in prose. These
// pre-compiled patterns back the cleanup strategies below.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json|go|python|javascript)?\\s*\n?([\\s\\S]*?)\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// ParseResult is the outcome of a tolerant JSON parse.
type ParseResult[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Parse attempts to decode model output into T, falling back through
// cleanup strategies: direct parse, fence removal, trailing-comma repair,
// and extraction of the outermost object from mixed content.
func Parse[T any](text string) ParseResult[T] {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseError[T]("empty input")
	}

	if data, err := tryParse[T](trimmed); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	unfenced := removeCodeFences(trimmed)
	if data, err := tryParse[T](unfenced); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	cleaned := trailingCommaRegex.ReplaceAllString(unfenced, "$1")
	if data, err := tryParse[T](cleaned); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	if extracted := objectRegex.FindString(cleaned); extracted != "" {
		if data, err := tryParse[T](extracted); err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
	}

	return parseError[T](fmt.Sprintf("all parsing strategies failed for input: %s", truncateString(text, 120)))
}

// ExtractCodeBlock returns the contents of the first fenced code block, or
// the whole text when no fences are present. Used when the model answers
// with raw source instead of the requested JSON envelope.
func ExtractCodeBlock(text string) string {
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func tryParse[T any](text string) (T, error) {
	var out T
	dec := json.NewDecoder(strings.NewReader(text))
	err := dec.Decode(&out)
	return out, err
}

func removeCodeFences(text string) string {
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

func parseError[T any](msg string) ParseResult[T] {
	return ParseResult[T]{Success: false, Error: msg}
}
