package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// stripJSONC turns JSONC into plain JSON in one pass. Comments and trailing
// commas are replaced by blanks, so byte offsets and line numbers in decode
// errors still point into the user's file.
func stripJSONC(src string) (string, error) {
	out := []byte(src)
	inString := false
	lastComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			lastComma = -1
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				line, col := position(src, int64(i)+1)
				return "", fmt.Errorf("line %d column %d: unterminated block comment", line, col)
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if out[i] != '\n' && out[i] != '\r' {
					out[i] = ' '
				}
			}
			i--
		case ch == ',':
			lastComma = i
		case ch == '}' || ch == ']':
			if lastComma >= 0 {
				out[lastComma] = ' '
			}
			lastComma = -1
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		default:
			lastComma = -1
		}
	}
	return string(out), nil
}

// locateJSONError prefixes decode errors with the line and column they
// refer to.
func locateJSONError(src string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := position(src, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// position maps a decoder offset (bytes consumed, so one past the culprit)
// to a 1-based line and column.
func position(src string, offset int64) (int, int) {
	n := int(max(offset-1, 0))
	n = min(n, len(src))
	prefix := src[:n]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
