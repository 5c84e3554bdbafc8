package analysis

import (
	"fmt"
)

/*
Token is one term produced by analysis, with its byte offsets in the
analyzed text. PosInc is the distance in positions from the previous
token: 1 for adjacent tokens, more when tokens were removed in between.
*/
type Token struct {
	Text   string
	Start  int
	End    int
	PosInc int
}

func (tk *Token) String() string {
	return fmt.Sprintf("%v:%v->%v", tk.Text, tk.Start, tk.End)
}

/*
A TokenStream enumerates the sequence of tokens of one field value.

Next returns nil once the stream is exhausted. The returned token may
be reused by the stream, so consumers copy what they need before the
next call.
*/
type TokenStream interface {
	Next() *Token
}

// TokenStreamFunc adapts a function to TokenStream.
type TokenStreamFunc func() *Token

func (f TokenStreamFunc) Next() *Token { return f() }

// Tokens drains ts. Mostly useful in tests.
func Tokens(ts TokenStream) []Token {
	var ans []Token
	for tk := ts.Next(); tk != nil; tk = ts.Next() {
		ans = append(ans, *tk)
	}
	return ans
}
