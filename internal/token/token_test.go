package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTokens(t *testing.T, src string) []Token {
	t.Helper()
	tok := New(strings.NewReader(src))
	var out []Token
	for {
		tk, err := tok.Next()
		require.NoError(t, err)
		if tk.Class == ClassEOF {
			return out
		}
		out = append(out, tk)
	}
}

func TestAtomicTokens(t *testing.T) {
	toks := allTokens(t, "( ) [ ] / $ @ { : } = ~ -")
	var texts []string
	for _, tk := range toks {
		assert.Equal(t, ClassAtomic, tk.Class)
		texts = append(texts, tk.Text)
	}
	assert.Equal(t, []string{"(", ")", "[", "]", "/", "$", "@", "{", ":", "}", "=", "~", "-"}, texts)
}

func TestPitchTokenWithAccidentalsAndSuffix(t *testing.T) {
	toks := allTokens(t, "CX'")
	require.Len(t, toks, 1)
	assert.Equal(t, ClassPitch, toks[0].Class)
	assert.Equal(t, "CX'", toks[0].Text)
}

func TestRhythmTokenSingleSuffix(t *testing.T) {
	toks := allTokens(t, "4.")
	require.Len(t, toks, 1)
	assert.Equal(t, ClassRhythm, toks[0].Class)
	assert.Equal(t, "4.", toks[0].Text)
}

func TestRhythmTokenStopsAtNonSuffix(t *testing.T) {
	toks := allTokens(t, "4C")
	require.Len(t, toks, 2)
	assert.Equal(t, "4", toks[0].Text)
	assert.Equal(t, ClassPitch, toks[1].Class)
}

func TestParamTokenRunsToSemicolon(t *testing.T) {
	toks := allTokens(t, `\foo;`)
	require.Len(t, toks, 1)
	assert.Equal(t, ClassParam, toks[0].Class)
	assert.Equal(t, `\foo;`, toks[0].Text)
}

func TestParamTokenUnterminatedErrors(t *testing.T) {
	tok := New(strings.NewReader(`\foo`))
	_, err := tok.Next()
	assert.Error(t, err)
}

func TestKeyTokenTwoChars(t *testing.T) {
	toks := allTokens(t, "*x")
	require.Len(t, toks, 1)
	assert.Equal(t, ClassKey, toks[0].Class)
	assert.Equal(t, "*x", toks[0].Text)
}

func TestCommentStripped(t *testing.T) {
	toks := allTokens(t, "( # this is a comment\n)")
	require.Len(t, toks, 2)
	assert.Equal(t, "(", toks[0].Text)
	assert.Equal(t, ")", toks[1].Text)
	assert.Equal(t, 2, toks[1].Line)
}

func TestCRLFCountsAsOneLine(t *testing.T) {
	toks := allTokens(t, "(\r\n)")
	require.Len(t, toks, 2)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
}

func TestLoneCRCountsAsNewline(t *testing.T) {
	toks := allTokens(t, "(\r)")
	require.Len(t, toks, 2)
	assert.Equal(t, 2, toks[1].Line)
}

func TestBOMIsConsumed(t *testing.T) {
	toks := allTokens(t, "\xEF\xBB\xBF(")
	require.Len(t, toks, 1)
	assert.Equal(t, "(", toks[0].Text)
}

func TestMalformedBOMErrors(t *testing.T) {
	tok := New(strings.NewReader("\xEF\xBB("))
	_, err := tok.Next()
	assert.Error(t, err)
}

func TestNULByteErrors(t *testing.T) {
	tok := New(strings.NewReader("(\x00)"))
	_, err := tok.Next()
	require.NoError(t, err)
	_, err = tok.Next()
	assert.Error(t, err)
}

func TestTokenTooLongErrors(t *testing.T) {
	src := "C" + strings.Repeat("'", maxTokenLen+1)
	tok := New(strings.NewReader(src))
	_, err := tok.Next()
	assert.Error(t, err)
}

func TestUnexpectedCharErrors(t *testing.T) {
	tok := New(strings.NewReader("%"))
	_, err := tok.Next()
	assert.Error(t, err)
}

func TestEmptyInputYieldsEOF(t *testing.T) {
	tok := New(strings.NewReader(""))
	tk, err := tok.Next()
	require.NoError(t, err)
	assert.Equal(t, ClassEOF, tk.Class)
}
