package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ParseCommand splits a command line into argv without a shell. Quotes group
// words, a backslash escapes the next character, and a leading "~/" on the
// program expands to the home directory. A blank or "#"-commented line
// yields an empty argv.
func ParseCommand(raw string) (CommandConfig, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return CommandConfig{Raw: raw}, nil
	}

	var s splitter
	for _, r := range line {
		s.feed(r)
	}
	if s.escaped {
		return CommandConfig{}, fmt.Errorf("unterminated escape sequence in command: %q", line)
	}
	if s.quote != 0 {
		return CommandConfig{}, fmt.Errorf("unterminated quote in command: %q", line)
	}
	s.endWord()

	if len(s.words) > 0 {
		s.words[0] = expandHome(s.words[0])
	}
	return CommandConfig{Raw: raw, Argv: s.words}, nil
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

type splitter struct {
	words   []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *splitter) feed(r rune) {
	switch {
	case s.escaped:
		s.escaped = false
		s.add(r)
	case r == '\\':
		s.escaped = true
		s.inWord = true
	case s.quote != 0 && r == s.quote:
		s.quote = 0
	case s.quote != 0:
		s.add(r)
	case r == '\'' || r == '"':
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.endWord()
	default:
		s.add(r)
	}
}

func (s *splitter) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

// endWord keeps an explicitly quoted empty word like "".
func (s *splitter) endWord() {
	if !s.inWord {
		return
	}
	s.words = append(s.words, s.word.String())
	s.word.Reset()
	s.inWord = false
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
