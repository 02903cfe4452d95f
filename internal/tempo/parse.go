package tempo

import (
	"bufio"
	"io"

	"noir/internal/errs"
)

// scanner is a byte-at-a-time, line-counted, one-byte-pushback reader
// over a tempo-map program, in the style of internal/token's Tokenizer.
type scanner struct {
	br      *bufio.Reader
	line    int
	pushed  byte
	hasPush bool
}

func newScanner(r io.Reader) *scanner {
	return &scanner{br: bufio.NewReader(r), line: 1}
}

func (s *scanner) unread(b byte) {
	if s.hasPush {
		errs.Fault("tempo: scanner pushback buffer already full")
	}
	s.pushed = b
	s.hasPush = true
}

func (s *scanner) next() (byte, bool, error) {
	if s.hasPush {
		s.hasPush = false
		return s.pushed, true, nil
	}
	b, err := s.br.ReadByte()
	if err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if b == '\n' {
		s.line++
	}
	return b, true, nil
}

// peekNonSpace skips horizontal/vertical whitespace and returns the next
// significant byte without consuming it.
func (s *scanner) peekNonSpace() (byte, bool, error) {
	for {
		b, ok, err := s.next()
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, nil
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		s.unread(b)
		return b, true, nil
	}
}

func (s *scanner) expectHeader() error {
	const want = "%noir-tempo;"
	for i := 0; i < len(want); i++ {
		b, ok, err := s.next()
		if err != nil {
			return err
		}
		if !ok || b != want[i] {
			return errs.NewAt(errs.CodeBadTempoSyntax, s.line, "missing %%noir-tempo; header")
		}
	}
	return nil
}

func isIdentByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

func (s *scanner) readIdent() (string, error) {
	var buf []byte
	for {
		b, ok, err := s.next()
		if err != nil {
			return "", err
		}
		if !ok || !isIdentByte(b) {
			if ok {
				s.unread(b)
			}
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

func (s *scanner) readNumLiteral() (string, error) {
	var buf []byte
	b, ok, err := s.next()
	if err != nil {
		return "", err
	}
	if ok && (b == '+' || b == '-') {
		buf = append(buf, b)
	} else if ok {
		s.unread(b)
	}
	for {
		nb, nok, nerr := s.next()
		if nerr != nil {
			return "", nerr
		}
		if !nok || !isDigitByte(nb) {
			if nok {
				s.unread(nb)
			}
			break
		}
		buf = append(buf, nb)
	}
	return string(buf), nil
}

// readQuoted reads a quoted-string body; the opening '"' must already
// have been consumed.
func (s *scanner) readQuoted() (string, error) {
	startLine := s.line
	var buf []byte
	for {
		b, ok, err := s.next()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errs.NewAt(errs.CodeBadTempoSyntax, startLine, "unterminated quoted string")
		}
		if b == '"' {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

// Parse reads a complete tempo-map program and returns its finished Map.
// sections is the section-offset table of the input NMF, consulted by
// the "sect" operator. rate must already be validated as 44100 or
// 48000.
func Parse(r io.Reader, rate int32, sections []uint32) (*Map, error) {
	sc := newScanner(r)
	if err := sc.expectHeader(); err != nil {
		return nil, err
	}
	ip := newInterp(rate, sections)

	for {
		b, ok, err := sc.peekNonSpace()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.NewAt(errs.CodeBadTempoSyntax, sc.line, "unexpected end of tempo map (missing |;)")
		}
		line := sc.line

		switch {
		case b == '|':
			sc.next()
			nb, nok, nerr := sc.next()
			if nerr != nil {
				return nil, nerr
			}
			if !nok || nb != ';' {
				return nil, errs.NewAt(errs.CodeBadTempoSyntax, line, "malformed end sentinel")
			}
			if err := ip.m.Finish(sc.line); err != nil {
				return nil, err
			}
			return ip.m, nil

		case b == '"':
			sc.next()
			text, err := sc.readQuoted()
			if err != nil {
				return nil, err
			}
			if err := ip.pushDur(text, line); err != nil {
				return nil, err
			}

		case isIdentByte(b):
			ident, err := sc.readIdent()
			if err != nil {
				return nil, err
			}
			nb, nok, nerr := sc.next()
			if nerr != nil {
				return nil, nerr
			}
			if nok && nb == '"' {
				text, err := sc.readQuoted()
				if err != nil {
					return nil, err
				}
				autostep := false
				switch ident {
				case "":
				case "t":
					autostep = true
				default:
					return nil, errs.NewAt(errs.CodeBadTempoSyntax, line, "unknown string prefix %q", ident)
				}
				if err := ip.pushDur(text, line); err != nil {
					return nil, err
				}
				if autostep {
					if err := ip.opStep(line); err != nil {
						return nil, err
					}
				}
				continue
			}
			if nok {
				sc.unread(nb)
			}
			switch ident {
			case "mul":
				err = ip.opMul(line)
			case "sect":
				err = ip.opSect(line)
			case "step":
				err = ip.opStep(line)
			case "tempo":
				err = ip.opTempo(line)
			case "ramp":
				err = ip.opRamp(line)
			case "span":
				err = ip.opSpan(line)
			default:
				err = errs.NewAt(errs.CodeBadTempoSyntax, line, "unknown operator %q", ident)
			}
			if err != nil {
				return nil, err
			}

		case b == '-' || isDigitByte(b):
			text, err := sc.readNumLiteral()
			if err != nil {
				return nil, err
			}
			if err := ip.pushNum(text, line); err != nil {
				return nil, err
			}

		default:
			return nil, errs.NewAt(errs.CodeBadTempoSyntax, line, "unexpected character %q", b)
		}
	}
}
