// Package transcript holds the running sentence of recognized signs and
// renders it as display text.
package transcript

import "strings"

// Options controls how tokens are rendered.
type Options struct {
	// Lowercase folds classifier labels (usually upper case) before casing rules apply.
	Lowercase           bool
	CapitalizeSentences bool
	TrailingSpace       bool
}

// Assemble joins tokens with single spaces and applies the configured casing.
func Assemble(tokens []string, opts Options) string {
	if len(tokens) == 0 {
		return ""
	}

	joined := strings.Join(tokens, " ")
	normalized := strings.Join(strings.Fields(joined), " ")
	if normalized == "" {
		return ""
	}

	if opts.Lowercase {
		normalized = strings.ToLower(normalized)
	}
	if opts.CapitalizeSentences {
		normalized = sentenceCase(normalized)
	}

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
