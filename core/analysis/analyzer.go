package analysis

import (
	"github.com/ironsweet/goferret/core/util"
)

/*
An Analyzer builds TokenStreams, which analyze text. It thus represents
a policy for extracting index terms from text. The field name lets an
analyzer treat fields differently.
*/
type Analyzer interface {
	TokenStream(field, text string) TokenStream
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(field, text string) TokenStream

func (f AnalyzerFunc) TokenStream(field, text string) TokenStream { return f(field, text) }

/* Splits on white space, optionally lower-casing the tokens. */
type WhiteSpaceAnalyzer struct {
	LowerCase bool
}

func (a *WhiteSpaceAnalyzer) TokenStream(field, text string) TokenStream {
	var ts TokenStream = NewWhiteSpaceTokenizer(text)
	if a.LowerCase {
		ts = NewLowerCaseFilter(ts)
	}
	return ts
}

/* Keeps runs of letters, optionally lower-casing the tokens. */
type LetterAnalyzer struct {
	LowerCase bool
}

func (a *LetterAnalyzer) TokenStream(field, text string) TokenStream {
	var ts TokenStream = NewLetterTokenizer(text)
	if a.LowerCase {
		ts = NewLowerCaseFilter(ts)
	}
	return ts
}

/*
Filters the standard tokenizer with LowerCaseFilter and StopFilter,
using a list of English stop words by default.
*/
type StandardAnalyzer struct {
	StopWords map[string]bool
}

/* Builds an analyzer with the default stop words (ENGLISH_STOP_WORDS_SET). */
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{ENGLISH_STOP_WORDS_SET}
}

func (a *StandardAnalyzer) TokenStream(field, text string) TokenStream {
	return NewStopFilter(NewLowerCaseFilter(NewStandardTokenizer(text)), a.StopWords)
}

/*
AnalyzerByName maps a configuration name to an analyzer: "whitespace",
"letter" or "standard".
*/
func AnalyzerByName(name string) (Analyzer, error) {
	switch name {
	case "whitespace":
		return &WhiteSpaceAnalyzer{}, nil
	case "letter":
		return &LetterAnalyzer{LowerCase: true}, nil
	case "standard", "":
		return NewStandardAnalyzer(), nil
	}
	return nil, util.ArgError("unknown analyzer %q", name)
}
