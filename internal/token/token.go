// Package token implements the streaming, byte-filtered, line-counted,
// comment-stripping Noir tokenizer (spec.md §4.C).
package token

import (
	"bufio"
	"io"

	"noir/internal/errs"
)

// Class identifies a token's lexical shape.
type Class int

const (
	ClassEOF Class = iota
	ClassAtomic
	ClassPitch
	ClassRhythm
	ClassParam
	ClassKey
)

// Token is one lexical unit: its class, raw text, and the 1-based source
// line it started on.
type Token struct {
	Class Class
	Text  string
	Line  int
}

const maxTokenLen = 31

const atomicChars = "()[]/$@{:}=~-Rr"

func isAccidental(b byte) bool {
	switch b {
	case 'X', 'S', 'N', 'H', 'T', 'x', 's', 'n', 'h', 't':
		return true
	}
	return false
}

func isSuffix(b byte) bool { return b == '\'' || b == ',' || b == '.' }

func isPitchStart(b byte) bool {
	return (b >= 'A' && b <= 'G') || (b >= 'a' && b <= 'g')
}

func isPrinting(b byte) bool { return b > 0x20 && b < 0x7F }

// Tokenizer reads tokens from a single source byte stream.
type Tokenizer struct {
	br      *bufio.Reader
	line    int
	pushed  byte
	hasPush bool
	bomDone bool
}

// New wraps r for tokenization. Line numbering starts at 1.
func New(r io.Reader) *Tokenizer {
	return &Tokenizer{br: bufio.NewReader(r), line: 1}
}

// Line returns the current 1-based line number.
func (t *Tokenizer) Line() int { return t.line }

func (t *Tokenizer) unread(b byte) {
	if t.hasPush {
		errs.Fault("token: pushback buffer already full")
	}
	t.pushed = b
	t.hasPush = true
}

func (t *Tokenizer) rawByte() (b byte, ok bool, err error) {
	if t.hasPush {
		t.hasPush = false
		return t.pushed, true, nil
	}
	b, err = t.br.ReadByte()
	if err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return b, true, nil
}

func (t *Tokenizer) ensureBOM() error {
	if t.bomDone {
		return nil
	}
	t.bomDone = true
	b, ok, err := t.rawByte()
	if err != nil || !ok {
		return err
	}
	if b != 0xEF {
		t.unread(b)
		return nil
	}
	b2, ok2, err2 := t.rawByte()
	if err2 != nil {
		return err2
	}
	if !ok2 || b2 != 0xBB {
		return errs.NewAt(errs.CodeBadBOM, t.line, "malformed byte-order mark")
	}
	b3, ok3, err3 := t.rawByte()
	if err3 != nil {
		return err3
	}
	if !ok3 || b3 != 0xBF {
		return errs.NewAt(errs.CodeBadBOM, t.line, "malformed byte-order mark")
	}
	return nil
}

// filteredByte returns the next byte after BOM consumption, NUL
// rejection, CR/LF normalization, and comment stripping; ok is false at
// EOF.
func (t *Tokenizer) filteredByte() (byte, bool, error) {
	if err := t.ensureBOM(); err != nil {
		return 0, false, err
	}
	for {
		b, ok, err := t.rawByte()
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, nil
		}
		if b == 0 {
			return 0, false, errs.NewAt(errs.CodeInvalidChar, t.line, "NUL byte in input")
		}
		if b == '#' {
			for {
				nb, nok, nerr := t.rawByte()
				if nerr != nil {
					return 0, false, nerr
				}
				if !nok {
					return 0, false, nil
				}
				if nb == '\n' || nb == '\r' {
					t.unread(nb)
					break
				}
			}
			continue
		}
		if b == '\r' || b == '\n' {
			nb, nok, nerr := t.rawByte()
			if nerr != nil {
				return 0, false, nerr
			}
			if nok {
				isPair := (b == '\r' && nb == '\n') || (b == '\n' && nb == '\r')
				if !isPair {
					t.unread(nb)
				}
			}
			t.line++
			return '\n', true, nil
		}
		return b, true, nil
	}
}

func (t *Tokenizer) appendByte(buf []byte, b byte) ([]byte, error) {
	if len(buf) >= maxTokenLen {
		return nil, errs.NewAt(errs.CodeTokenTooLong, t.line, "token exceeds %d characters", maxTokenLen)
	}
	return append(buf, b), nil
}

// Next returns the next token, or a ClassEOF token (successfully) when
// the input is exhausted.
func (t *Tokenizer) Next() (Token, error) {
	startLine := t.line
	var b byte
	for {
		nb, ok, err := t.filteredByte()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			return Token{Class: ClassEOF, Line: t.line}, nil
		}
		if nb == ' ' || nb == '\t' || nb == '\n' {
			continue
		}
		b = nb
		startLine = t.line
		break
	}

	switch {
	case isAtomic(b):
		return Token{Class: ClassAtomic, Text: string(b), Line: startLine}, nil
	case isPitchStart(b):
		return t.lexPitch(b, startLine)
	case b >= '0' && b <= '9':
		return t.lexRhythm(b, startLine)
	case b == '\\' || b == '^' || b == '&' || b == '+' || b == '`':
		return t.lexParam(b, startLine)
	case b == '*' || b == '!':
		return t.lexKey(b, startLine)
	default:
		return Token{}, errs.NewAt(errs.CodeInvalidChar, startLine, "unexpected character %q", b)
	}
}

func isAtomic(b byte) bool {
	for i := 0; i < len(atomicChars); i++ {
		if atomicChars[i] == b {
			return true
		}
	}
	return false
}

func (t *Tokenizer) lexPitch(first byte, line int) (Token, error) {
	buf := []byte{first}
	for {
		b, ok, err := t.filteredByte()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			break
		}
		if isAccidental(b) || isSuffix(b) {
			var aerr error
			buf, aerr = t.appendByte(buf, b)
			if aerr != nil {
				return Token{}, aerr
			}
			continue
		}
		t.unread(b)
		break
	}
	return Token{Class: ClassPitch, Text: string(buf), Line: line}, nil
}

func (t *Tokenizer) lexRhythm(first byte, line int) (Token, error) {
	buf := []byte{first}
	b, ok, err := t.filteredByte()
	if err != nil {
		return Token{}, err
	}
	if ok {
		if isSuffix(b) {
			buf = append(buf, b)
		} else {
			t.unread(b)
		}
	}
	return Token{Class: ClassRhythm, Text: string(buf), Line: line}, nil
}

func (t *Tokenizer) lexParam(first byte, line int) (Token, error) {
	buf := []byte{first}
	for {
		b, ok, err := t.filteredByte()
		if err != nil {
			return Token{}, err
		}
		if !ok {
			return Token{}, errs.NewAt(errs.CodeInvalidChar, line, "unterminated parametric token")
		}
		if b != ';' && !isPrinting(b) {
			return Token{}, errs.NewAt(errs.CodeInvalidChar, line, "parametric token requires printing characters")
		}
		var aerr error
		buf, aerr = t.appendByte(buf, b)
		if aerr != nil {
			return Token{}, aerr
		}
		if b == ';' {
			break
		}
	}
	return Token{Class: ClassParam, Text: string(buf), Line: line}, nil
}

func (t *Tokenizer) lexKey(first byte, line int) (Token, error) {
	b, ok, err := t.filteredByte()
	if err != nil {
		return Token{}, err
	}
	if !ok || !isPrinting(b) {
		return Token{}, errs.NewAt(errs.CodeInvalidChar, line, "key operator %q requires one printing character", first)
	}
	return Token{Class: ClassKey, Text: string([]byte{first, b}), Line: line}, nil
}
