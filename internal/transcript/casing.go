package transcript

import (
	"strings"
	"unicode"
)

// sentenceCase capitalizes the first letter of every sentence and the
// pronoun "I" (bare or contracted). Input words are single-space separated.
func sentenceCase(text string) string {
	words := strings.Split(text, " ")
	start := true
	for i, w := range words {
		if isPronounI(w) {
			w = strings.Replace(w, "i", "I", 1)
		}
		if start {
			w, start = capitalizeFirst(w)
		}
		if strings.ContainsAny(lastRune(w), ".!?") {
			start = true
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}

// capitalizeFirst upper-cases the first letter of w. A digit before any
// letter counts as the sentence start. The returned bool reports whether
// the start is still pending.
func capitalizeFirst(w string) (string, bool) {
	for i, r := range w {
		switch {
		case unicode.IsLetter(r):
			return w[:i] + string(unicode.ToUpper(r)) + w[i+len(string(r)):], false
		case unicode.IsDigit(r):
			return w, false
		}
	}
	return w, true
}

var contractions = map[string]bool{"m": true, "d": true, "ll": true, "ve": true, "re": true, "s": true}

func isPronounI(w string) bool {
	core := strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})
	core = strings.Trim(core, "'’")
	if core == "i" {
		return true
	}
	rest, ok := strings.CutPrefix(core, "i'")
	if !ok {
		rest, ok = strings.CutPrefix(core, "i’")
	}
	return ok && contractions[rest]
}

func lastRune(w string) string {
	if w == "" {
		return ""
	}
	r := []rune(w)
	return string(r[len(r)-1])
}
