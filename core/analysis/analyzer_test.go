package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func texts(tokens []Token) []string {
	ans := make([]string, len(tokens))
	for i, tk := range tokens {
		ans[i] = tk.Text
	}
	return ans
}

func TestWhiteSpaceAnalyzer(t *testing.T) {
	tokens := Tokens((&WhiteSpaceAnalyzer{}).TokenStream("f", "  One two\tthree-four \n"))
	assert.Equal(t, []string{"One", "two", "three-four"}, texts(tokens))
	assert.Equal(t, Token{"two", 6, 9, 1}, tokens[1])
}

func TestLetterAnalyzer(t *testing.T) {
	tokens := Tokens((&LetterAnalyzer{LowerCase: true}).TokenStream("f", "Héllo, World42x"))
	assert.Equal(t, []string{"héllo", "world", "x"}, texts(tokens))
	assert.Equal(t, 0, tokens[0].Start)
	assert.Equal(t, 6, tokens[0].End)
}

func TestStandardAnalyzerStopWords(t *testing.T) {
	tokens := Tokens(NewStandardAnalyzer().TokenStream("f", "The quick fox is in the box 2"))
	assert.Equal(t, []string{"quick", "fox", "box", "2"}, texts(tokens))
	assert.Equal(t, 2, tokens[0].PosInc)
	assert.Equal(t, 1, tokens[1].PosInc)
	assert.Equal(t, 4, tokens[2].PosInc)
}

func TestAnalyzerByName(t *testing.T) {
	for _, name := range []string{"whitespace", "letter", "standard", ""} {
		a, err := AnalyzerByName(name)
		assert.NoError(t, err)
		assert.NotNil(t, a)
	}
	_, err := AnalyzerByName("klingon")
	assert.Error(t, err)
}
