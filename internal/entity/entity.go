// Package entity is the driver over internal/token that groups tokens
// into pitch sets, rhythm groups, and operations, and dispatches them to
// the virtual machine (spec.md §4.D).
package entity

import (
	"noir/internal/errs"
	"noir/internal/nmf"
	"noir/internal/pitchset"
	"noir/internal/token"
	"noir/internal/vm"
)

// Parser drives a single compile run: one Tokenizer, one VM, consumed
// exactly once.
type Parser struct {
	tok *token.Tokenizer
	m   *vm.VM
	ran bool
}

// New builds a Parser over tok, dispatching into m.
func New(tok *token.Tokenizer, m *vm.VM) *Parser {
	return &Parser{tok: tok, m: m}
}

// Run consumes the entire token stream and returns the finished NMF
// object. Run is single-use: a second call faults.
func (p *Parser) Run() (*nmf.NMF, error) {
	if p.ran {
		errs.Fault("entity: Parser.Run called more than once")
	}
	p.ran = true

	for {
		tok, err := p.tok.Next()
		if err != nil {
			return nil, err
		}
		if tok.Class == token.ClassEOF {
			buf, err := p.m.EOF(tok.Line)
			if err != nil {
				return nil, err
			}
			return buf.Finish()
		}
		if err := p.dispatch(tok); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) dispatch(tok token.Token) error {
	switch tok.Class {
	case token.ClassPitch:
		set, err := p.pitchEntity(tok)
		if err != nil {
			return err
		}
		return p.m.PushPitch(set, tok.Line)
	case token.ClassRhythm:
		dur, err := p.rhythmEntity(tok)
		if err != nil {
			return err
		}
		return p.m.SetDuration(dur, tok.Line)
	case token.ClassAtomic:
		return p.dispatchAtomic(tok)
	case token.ClassParam:
		return p.dispatchParam(tok)
	case token.ClassKey:
		return p.dispatchKey(tok)
	}
	return errs.NewAt(errs.CodeBadOperator, tok.Line, "unrecognized token %q", tok.Text)
}

func (p *Parser) dispatchAtomic(tok token.Token) error {
	switch tok.Text {
	case ")", "]":
		return errs.NewAt(errs.CodeUnexpectedClose, tok.Line, "unexpected %q at top level", tok.Text)
	case "R", "r":
		set, err := p.pitchEntity(tok)
		if err != nil {
			return err
		}
		return p.m.PushPitch(set, tok.Line)
	case "(":
		set, err := p.pitchEntity(tok)
		if err != nil {
			return err
		}
		return p.m.PushPitch(set, tok.Line)
	case "[":
		dur, err := p.rhythmEntity(tok)
		if err != nil {
			return err
		}
		return p.m.SetDuration(dur, tok.Line)
	case "/":
		return p.m.Repeat(tok.Line)
	case "$":
		return p.m.Section(tok.Line)
	case "@":
		return p.m.Return(tok.Line)
	case "{":
		return p.m.PushLocation(tok.Line)
	case ":":
		return p.m.JumpLocation(tok.Line)
	case "}":
		return p.m.PopLocation(tok.Line)
	case "=":
		return p.m.PopTranspose(tok.Line)
	case "~":
		return p.m.PopArt(tok.Line)
	case "-":
		return p.m.PopLayer(tok.Line)
	}
	return errs.NewAt(errs.CodeBadOperator, tok.Line, "unrecognized atomic token %q", tok.Text)
}

const maxNesting = 1024

// pitchEntity handles a top-level pitch token: a rest (empty set), a
// single pitch (singleton set), or a '(' group.
func (p *Parser) pitchEntity(first token.Token) (pitchset.Set, error) {
	if first.Text == "R" || first.Text == "r" {
		return pitchset.Set{}, nil
	}
	if first.Text != "(" {
		pv, err := decodePitch(first.Text, first.Line)
		if err != nil {
			return pitchset.Set{}, err
		}
		var set pitchset.Set
		set.Add(pv)
		return set, nil
	}

	var set pitchset.Set
	depth := 1
	for {
		tok, err := p.tok.Next()
		if err != nil {
			return pitchset.Set{}, err
		}
		if tok.Class == token.ClassEOF {
			return pitchset.Set{}, errs.NewAt(errs.CodeUnclosedGroup, first.Line, "unclosed pitch group")
		}
		if tok.Class == token.ClassAtomic && tok.Text == "(" {
			depth++
			if depth > maxNesting {
				return pitchset.Set{}, errs.NewAt(errs.CodeNestingOverflow, tok.Line, "pitch group nesting too deep")
			}
			continue
		}
		if tok.Class == token.ClassAtomic && tok.Text == ")" {
			depth--
			if depth == 0 {
				return set, nil
			}
			continue
		}
		if tok.Class == token.ClassAtomic && (tok.Text == "R" || tok.Text == "r") {
			continue
		}
		if tok.Class == token.ClassPitch {
			pv, err := decodePitch(tok.Text, tok.Line)
			if err != nil {
				return pitchset.Set{}, err
			}
			set.Add(pv)
			continue
		}
		return pitchset.Set{}, errs.NewAt(errs.CodeUnclosedGroup, tok.Line, "unclosed pitch group")
	}
}

// rhythmEntity handles a top-level rhythm token: a single rhythm token,
// or a '[' group summing contained rhythm tokens.
func (p *Parser) rhythmEntity(first token.Token) (int32, error) {
	if first.Text != "[" {
		dur, isGrace, err := decodeRhythm(first.Text, first.Line)
		if err != nil {
			return 0, err
		}
		if isGrace {
			return 0, nil
		}
		return dur, nil
	}

	var total int32
	depth := 1
	for {
		tok, err := p.tok.Next()
		if err != nil {
			return 0, err
		}
		if tok.Class == token.ClassEOF {
			return 0, errs.NewAt(errs.CodeUnclosedGroup, first.Line, "unclosed rhythm group")
		}
		if tok.Class == token.ClassAtomic && tok.Text == "[" {
			depth++
			if depth > maxNesting {
				return 0, errs.NewAt(errs.CodeNestingOverflow, tok.Line, "rhythm group nesting too deep")
			}
			continue
		}
		if tok.Class == token.ClassAtomic && tok.Text == "]" {
			depth--
			if depth == 0 {
				return total, nil
			}
			continue
		}
		if tok.Class == token.ClassRhythm {
			dur, isGrace, err := decodeRhythm(tok.Text, tok.Line)
			if err != nil {
				return 0, err
			}
			if isGrace {
				return 0, errs.NewAt(errs.CodeGraceInRhythmGroup, tok.Line, "grace note inside rhythm group")
			}
			sum, err := addOverflow32(total, dur, tok.Line)
			if err != nil {
				return 0, err
			}
			total = sum
			continue
		}
		return 0, errs.NewAt(errs.CodeUnclosedGroup, tok.Line, "unclosed rhythm group")
	}
}

func addOverflow32(a, b int32, line int) (int32, error) {
	sum := int64(a) + int64(b)
	if sum < -2147483648 || sum > 2147483647 {
		return 0, errs.NewAt(errs.CodeArithOverflow, line, "rhythm sum overflow")
	}
	return int32(sum), nil
}

var pitchBase = map[byte]int{
	'C': -12, 'D': -10, 'E': -8, 'F': -7, 'G': -5, 'A': -3, 'B': -1,
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

func pitchSuffixDelta(b byte) (int, bool) {
	switch b {
	case 'x', 'X':
		return 2, true
	case 's', 'S':
		return 1, true
	case 'n', 'N':
		return 0, true
	case 'h', 'H':
		return -1, true
	case 't', 'T':
		return -2, true
	case '\'':
		return 12, true
	case ',':
		return -12, true
	}
	return 0, false
}

// decodePitch decodes a pitch token's text into a semitone offset.
func decodePitch(text string, line int) (int, error) {
	base, ok := pitchBase[text[0]]
	if !ok {
		return 0, errs.NewAt(errs.CodeBadPitch, line, "bad pitch letter %q", text[0])
	}
	v := base
	for i := 1; i < len(text); i++ {
		d, ok := pitchSuffixDelta(text[i])
		if !ok {
			return 0, errs.NewAt(errs.CodeBadPitch, line, "bad pitch suffix %q", text[i])
		}
		sum := int64(v) + int64(d)
		if sum < -1<<30 || sum > 1<<30 {
			return 0, errs.NewAt(errs.CodeArithOverflow, line, "pitch adjustment overflow")
		}
		v = int(sum)
	}
	if v < pitchset.MinPitch || v > pitchset.MaxPitch {
		return 0, errs.NewAt(errs.CodeBadPitch, line, "pitch %d out of range", v)
	}
	return v, nil
}

var rhythmBase = map[byte]int32{
	'0': 0, '1': 6, '2': 12, '3': 24, '4': 48, '5': 96, '6': 192, '7': 384, '8': 32, '9': 64,
}

// decodeRhythm decodes a rhythm token's text into a quanta count; isGrace
// is true when the base digit is 0.
func decodeRhythm(text string, line int) (dur int32, isGrace bool, err error) {
	base, ok := rhythmBase[text[0]]
	if !ok {
		return 0, false, errs.NewAt(errs.CodeBadRhythm, line, "bad rhythm digit %q", text[0])
	}
	isGrace = text[0] == '0'
	if isGrace && len(text) > 1 {
		return 0, false, errs.NewAt(errs.CodeBadRhythm, line, "grace rhythm token cannot carry a suffix")
	}
	v := base
	if len(text) > 1 {
		switch text[1] {
		case '\'':
			sum := int64(v) * 2
			if sum > 1<<30 {
				return 0, false, errs.NewAt(errs.CodeArithOverflow, line, "rhythm overflow")
			}
			v = int32(sum)
		case '.':
			v = v + v/2
		case ',':
			v = v / 2
		default:
			return 0, false, errs.NewAt(errs.CodeBadRhythm, line, "bad rhythm suffix %q", text[1])
		}
	}
	return v, isGrace, nil
}

func parseParamInt(text string, line int) (int32, error) {
	// text is the full token, e.g. "^12;" or "\-5;"; strip the leading op
	// char and trailing ';'.
	body := text[1 : len(text)-1]
	if body == "" {
		return 0, errs.NewAt(errs.CodeBadOperator, line, "missing parametric argument")
	}
	neg := false
	i := 0
	if body[0] == '+' || body[0] == '-' {
		neg = body[0] == '-'
		i = 1
	}
	if i >= len(body) {
		return 0, errs.NewAt(errs.CodeBadOperator, line, "missing digits in parametric argument")
	}
	var v int64
	for ; i < len(body); i++ {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, errs.NewAt(errs.CodeBadOperator, line, "bad digit %q in parametric argument", c)
		}
		v = v*10 + int64(c-'0')
		if v > 1<<31 {
			return 0, errs.NewAt(errs.CodeArithOverflow, line, "parametric argument overflow")
		}
	}
	if neg {
		v = -v
	}
	if v < -2147483648 || v > 2147483647 {
		return 0, errs.NewAt(errs.CodeArithOverflow, line, "parametric argument overflow")
	}
	return int32(v), nil
}

func (p *Parser) dispatchParam(tok token.Token) error {
	n, err := parseParamInt(tok.Text, tok.Line)
	if err != nil {
		return err
	}
	switch tok.Text[0] {
	case '\\':
		return p.m.MultiRepeat(n, tok.Line)
	case '^':
		return p.m.PushTranspose(n, tok.Line)
	case '&':
		return p.m.SetBaseLayer(n, tok.Line)
	case '+':
		return p.m.PushLayer(n, tok.Line)
	case '`':
		if n < 0 {
			return errs.NewAt(errs.CodeBadCue, tok.Line, "cue number cannot be negative")
		}
		return p.m.Cue(uint32(n), tok.Line)
	}
	return errs.NewAt(errs.CodeBadOperator, tok.Line, "unrecognized parametric operator %q", tok.Text)
}

func decodeArtKey(b byte, line int) (int, error) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), nil
	case b >= 'A' && b <= 'Z':
		return int(b-'A') + 10, nil
	case b >= 'a' && b <= 'z':
		return int(b-'a') + 36, nil
	}
	return 0, errs.NewAt(errs.CodeBadOperator, line, "bad articulation key %q", b)
}

func (p *Parser) dispatchKey(tok token.Token) error {
	k, err := decodeArtKey(tok.Text[1], tok.Line)
	if err != nil {
		return err
	}
	switch tok.Text[0] {
	case '*':
		return p.m.ImmArt(k, tok.Line)
	case '!':
		return p.m.PushArt(k, tok.Line)
	}
	return errs.NewAt(errs.CodeBadOperator, tok.Line, "unrecognized key operator %q", tok.Text)
}
