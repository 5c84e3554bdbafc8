package analysis

import (
	"unicode"
	"unicode/utf8"
)

/*
A Tokenizer splits text into tokens made of the runes accepted by
isTokenRune. Offsets are byte offsets into the text.
*/
type Tokenizer struct {
	text        string
	pos         int
	isTokenRune func(r rune) bool
	token       Token
}

func NewTokenizer(text string, isTokenRune func(r rune) bool) *Tokenizer {
	return &Tokenizer{text: text, isTokenRune: isTokenRune}
}

func (t *Tokenizer) Next() *Token {
	start := -1
	for t.pos < len(t.text) {
		r, size := utf8.DecodeRuneInString(t.text[t.pos:])
		if t.isTokenRune(r) {
			if start < 0 {
				start = t.pos
			}
		} else if start >= 0 {
			break
		}
		t.pos += size
	}
	if start < 0 {
		return nil
	}
	t.token = Token{Text: t.text[start:t.pos], Start: start, End: t.pos, PosInc: 1}
	return &t.token
}

func isNotSpace(r rune) bool { return !unicode.IsSpace(r) }

func isLetterOrDigit(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// NewWhiteSpaceTokenizer splits on white space.
func NewWhiteSpaceTokenizer(text string) *Tokenizer {
	return NewTokenizer(text, isNotSpace)
}

// NewLetterTokenizer keeps maximal runs of letters.
func NewLetterTokenizer(text string) *Tokenizer {
	return NewTokenizer(text, unicode.IsLetter)
}

// NewStandardTokenizer keeps maximal runs of letters and digits.
func NewStandardTokenizer(text string) *Tokenizer {
	return NewTokenizer(text, isLetterOrDigit)
}
