package tempo

import "noir/internal/errs"

const maxTempoStack = 32

// interp is the small stack machine that drives a Map from the
// operators and literals of the tempo-map program.
type interp struct {
	m        *Map
	sections []uint32
	cursor   int32
	stack    []int32
}

func newInterp(rate int32, sections []uint32) *interp {
	return &interp{m: NewMap(rate), sections: sections}
}

func (ip *interp) push(v int32, line int) error {
	if len(ip.stack) >= maxTempoStack {
		return errs.NewAt(errs.CodeStackOverflow, line, "tempo interpreter stack overflow")
	}
	ip.stack = append(ip.stack, v)
	return nil
}

func (ip *interp) pop(line int) (int32, error) {
	if len(ip.stack) == 0 {
		return 0, errs.NewAt(errs.CodeStackUnderflow, line, "tempo interpreter stack underflow")
	}
	v := ip.stack[len(ip.stack)-1]
	ip.stack = ip.stack[:len(ip.stack)-1]
	return v, nil
}

func (ip *interp) pushDur(text string, line int) error {
	dur, err := decodeDurationString(text, line)
	if err != nil {
		return err
	}
	return ip.push(dur, line)
}

func (ip *interp) pushNum(text string, line int) error {
	v, err := parseNumLiteral(text, line)
	if err != nil {
		return err
	}
	return ip.push(v, line)
}

func (ip *interp) opMul(line int) error {
	b, err := ip.pop(line)
	if err != nil {
		return err
	}
	a, err := ip.pop(line)
	if err != nil {
		return err
	}
	r := int64(a) * int64(b)
	if r < -2147483648 || r > 2147483647 {
		return errs.NewAt(errs.CodeArithOverflow, line, "multiplication overflow")
	}
	return ip.push(int32(r), line)
}

func (ip *interp) opSect(line int) error {
	sect, err := ip.pop(line)
	if err != nil {
		return err
	}
	if sect < 0 || int(sect) >= len(ip.sections) {
		return errs.NewAt(errs.CodeBadTempoSyntax, line, "section %d out of range", sect)
	}
	ip.cursor = int32(ip.sections[sect])
	return nil
}

func (ip *interp) opStep(line int) error {
	sv, err := ip.pop(line)
	if err != nil {
		return err
	}
	sum := int64(ip.cursor) + int64(sv)
	if sum < 0 || sum > 2147483647 {
		return errs.NewAt(errs.CodeArithOverflow, line, "cursor step out of range")
	}
	ip.cursor = int32(sum)
	return nil
}

func (ip *interp) opTempo(line int) error {
	r, err := ip.pop(line)
	if err != nil {
		return err
	}
	q, err := ip.pop(line)
	if err != nil {
		return err
	}
	return ip.m.AddConstant(ip.cursor, q, r, line)
}

func (ip *interp) opSpan(line int) error {
	ms, err := ip.pop(line)
	if err != nil {
		return err
	}
	q, err := ip.pop(line)
	if err != nil {
		return err
	}
	return ip.m.AddSpan(ip.cursor, q, ms, line)
}

func (ip *interp) opRamp(line int) error {
	r2, err := ip.pop(line)
	if err != nil {
		return err
	}
	q2, err := ip.pop(line)
	if err != nil {
		return err
	}
	r1, err := ip.pop(line)
	if err != nil {
		return err
	}
	q1, err := ip.pop(line)
	if err != nil {
		return err
	}
	return ip.m.BufferRamp(ip.cursor, q1, r1, q2, r2, line)
}

// durationBase excludes '0': the tempo-map duration string has no grace
// digit, unlike the Noir rhythm token decoder.
var durationBase = map[byte]int32{
	'1': 6, '2': 12, '3': 24, '4': 48, '5': 96, '6': 192, '7': 384, '8': 32, '9': 64,
}

func decodeDurationString(s string, line int) (int32, error) {
	if s == "" {
		return 0, errs.NewAt(errs.CodeBadTempoSyntax, line, "empty duration string")
	}
	var total int64
	for i := 0; i < len(s); i++ {
		base, ok := durationBase[s[i]]
		if !ok {
			return 0, errs.NewAt(errs.CodeBadTempoSyntax, line, "bad duration digit %q", s[i])
		}
		d := base
		if i+1 < len(s) {
			switch s[i+1] {
			case '\'':
				d *= 2
				i++
			case '.':
				d = d + d/2
				i++
			case ',':
				d = d / 2
				i++
			}
		}
		total += int64(d)
		if total > 2147483647 {
			return 0, errs.NewAt(errs.CodeArithOverflow, line, "duration string overflow")
		}
	}
	return int32(total), nil
}

func parseNumLiteral(s string, line int) (int32, error) {
	if s == "" {
		return 0, errs.NewAt(errs.CodeBadTempoSyntax, line, "empty numeric literal")
	}
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i = 1
	}
	if i >= len(s) {
		return 0, errs.NewAt(errs.CodeBadTempoSyntax, line, "missing digits in numeric literal")
	}
	var v int64
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errs.NewAt(errs.CodeBadTempoSyntax, line, "bad digit %q in numeric literal", c)
		}
		v = v*10 + int64(c-'0')
		if v > 1<<31 {
			return 0, errs.NewAt(errs.CodeArithOverflow, line, "numeric literal overflow")
		}
	}
	if neg {
		v = -v
	}
	if v < -2147483648 || v > 2147483647 {
		return 0, errs.NewAt(errs.CodeArithOverflow, line, "numeric literal overflow")
	}
	return int32(v), nil
}
