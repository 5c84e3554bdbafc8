package analysis

import (
	"strings"
)

/* Normalizes token text to lower case. */
type LowerCaseFilter struct {
	input TokenStream
}

func NewLowerCaseFilter(input TokenStream) *LowerCaseFilter {
	return &LowerCaseFilter{input}
}

func (f *LowerCaseFilter) Next() *Token {
	tk := f.input.Next()
	if tk != nil {
		tk.Text = strings.ToLower(tk.Text)
	}
	return tk
}

/*
Removes stop words from a token stream. The position increment of the
next kept token grows by the number of removed tokens.
*/
type StopFilter struct {
	input     TokenStream
	stopWords map[string]bool
}

func NewStopFilter(input TokenStream, stopWords map[string]bool) *StopFilter {
	return &StopFilter{input, stopWords}
}

func (f *StopFilter) Next() *Token {
	skipped := 0
	for tk := f.input.Next(); tk != nil; tk = f.input.Next() {
		if !f.stopWords[tk.Text] {
			tk.PosInc += skipped
			return tk
		}
		skipped += tk.PosInc
	}
	return nil
}

/* An unmodifiable set containing some common English words that are not usually useful for searching. */
var ENGLISH_STOP_WORDS_SET = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "but": true, "by": true,
	"for": true, "if": true, "in": true, "into": true, "is": true, "it": true,
	"no": true, "not": true, "of": true, "on": true, "or": true, "such": true,
	"that": true, "the": true, "their": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "to": true, "was": true, "will": true, "with": true,
}
