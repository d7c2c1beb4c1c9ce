package enrich

import (
	"strings"
	"unicode"
)

// minHalfLen is the shortest half that counts as a concatenated duplicate,
// so "MedicalMedical" collapses but "papa" and "lulu" stay intact.
const minHalfLen = 3

// Sanitize removes the repetition artifacts some models emit:
// a word repeated after whitespace ("Medical Medical") keeps its first
// occurrence, a word that is its own half twice ("MedicalMedical") becomes
// the half, and surrounding whitespace is trimmed. Comparisons ignore case.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	for {
		next := sanitizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	tokens := tokenize(s)
	for i := range tokens {
		if tokens[i].word {
			tokens[i].text = collapseDoubled(tokens[i].text)
		}
	}

	out := make([]token, 0, len(tokens))
	for _, tok := range tokens {
		// Drop tok when the last two kept tokens are <word><whitespace> and tok repeats that word.
		if tok.word && len(out) >= 2 {
			sep, prev := out[len(out)-1], out[len(out)-2]
			if !sep.word && isSpace(sep.text) && prev.word && strings.EqualFold(prev.text, tok.text) {
				out = out[:len(out)-1]
				continue
			}
		}
		out = append(out, tok)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, tok := range out {
		b.WriteString(tok.text)
	}
	return strings.TrimSpace(b.String())
}

type token struct {
	text string
	word bool
}

func tokenize(s string) []token {
	var out []token
	start := 0
	inWord := false
	for i, r := range s {
		w := isWordRune(r)
		if i == 0 {
			inWord = w
			continue
		}
		if w != inWord {
			out = append(out, token{text: s[start:i], word: inWord})
			start = i
			inWord = w
		}
	}
	if start < len(s) {
		out = append(out, token{text: s[start:], word: inWord})
	}
	return out
}

func collapseDoubled(word string) string {
	runes := []rune(word)
	if len(runes)%2 != 0 || len(runes)/2 < minHalfLen {
		return word
	}
	half := len(runes) / 2
	first, second := string(runes[:half]), string(runes[half:])
	if strings.EqualFold(first, second) {
		return first
	}
	return word
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return s != ""
}
