package naming

import (
	"strings"
	"unicode"
)

// MaxToolNameLength is the longest function name chat model providers accept.
const MaxToolNameLength = 64

// SnakeCase lowers s and joins its words with underscores. Path punctuation
// such as "/" and "{id}" braces separates words.
func SnakeCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, "_")
}

// OperationName derives the tool name of an operation: its operationId when
// present, otherwise method_snake_path. The result is passed through ToolName.
func OperationName(prefix, operationID, method, path string) string {
	name := operationID
	if name == "" {
		name = strings.ToLower(method)
		if p := SnakeCase(path); p != "" {
			name += "_" + p
		}
	}
	return ToolName(prefix + name)
}

// ToolName replaces characters outside [a-zA-Z0-9_-] with underscores and
// truncates the result to MaxToolNameLength.
func ToolName(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			result.WriteRune(r)
		} else {
			result.WriteByte('_')
		}
	}

	name := result.String()
	if name == "" {
		return "tool"
	}
	if len(name) > MaxToolNameLength {
		name = name[:MaxToolNameLength]
	}
	return name
}

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', ' ', '.', '/', '{', '}':
		return true
	}
	return false
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	for i, r := range s {
		if isSeparator(r) {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				if current.Len() > 0 {
					words = append(words, current.String())
					current.Reset()
				}
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}
