package transcript

import (
	"strings"
	"sync"
)

// Buffer is the ordered list of recognized tokens shown as the current
// sentence. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	tokens []string
	opts   Options
}

// NewBuffer returns an empty buffer that renders with opts.
func NewBuffer(opts Options) *Buffer {
	return &Buffer{opts: opts}
}

// Append adds token unless it is blank or equal to the current last token.
// It reports whether the token was added.
func (b *Buffer) Append(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.tokens); n > 0 && b.tokens[n-1] == token {
		return false
	}
	b.tokens = append(b.tokens, token)
	return true
}

// Undo removes the last token. It reports false when the buffer was empty.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tokens) == 0 {
		return false
	}
	b.tokens = b.tokens[:len(b.tokens)-1]
	return true
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.tokens = nil
	b.mu.Unlock()
}

// Tokens returns a copy of the buffered tokens in order.
func (b *Buffer) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

// Last returns the most recent token.
func (b *Buffer) Last() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tokens) == 0 {
		return "", false
	}
	return b.tokens[len(b.tokens)-1], true
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// Sentence renders the buffer with its options.
func (b *Buffer) Sentence() string {
	return Assemble(b.Tokens(), b.opts)
}
