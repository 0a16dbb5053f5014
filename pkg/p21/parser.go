package p21

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
)

// SyntaxError reports malformed exchange file text.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("p21: line %d: %s", e.Line, e.Msg)
}

// Parse reads an exchange file. Only simple entity instances are
// supported; complex (multi-leaf) instances fail with a SyntaxError.
func Parse(r io.Reader) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("p21: read: %w", err)
	}
	p := &parser{src: src, line: 1}
	f := NewFile("")
	f.Header = Header{}
	if err := p.parseFile(f); err != nil {
		return nil, err
	}
	return f, nil
}

type parser struct {
	src  []byte
	pos  int
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

// skip consumes whitespace and /* */ comments.
func (p *parser) skip() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := bytes.Index(p.src[p.pos+2:], []byte("*/"))
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.line += bytes.Count(p.src[p.pos:p.pos+2+end], []byte("\n"))
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	p.skip()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	if got := p.peek(); got != c {
		if got == 0 {
			return p.errorf("unexpected end of input, want %q", c)
		}
		return p.errorf("want %q, got %q", c, got)
	}
	p.pos++
	return nil
}

// keyword reads an upper-cased identifier, allowing '-' for the
// section keywords like END-ISO-10303-21.
func (p *parser) keyword() string {
	p.skip()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c == '-' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			p.pos++
			continue
		}
		break
	}
	return strings.ToUpper(string(p.src[start:p.pos]))
}

func (p *parser) statement(kw string) error {
	if got := p.keyword(); got != kw {
		return p.errorf("want %s, got %q", kw, got)
	}
	return p.expect(';')
}

func (p *parser) parseFile(f *File) error {
	if err := p.statement("ISO-10303-21"); err != nil {
		return err
	}
	if err := p.statement("HEADER"); err != nil {
		return err
	}
	if err := p.parseHeader(&f.Header); err != nil {
		return err
	}
	if err := p.statement("DATA"); err != nil {
		return err
	}
	for {
		if p.peek() != '#' {
			break
		}
		if err := p.parseEntity(f); err != nil {
			return err
		}
	}
	if err := p.statement("ENDSEC"); err != nil {
		return err
	}
	return p.statement("END-ISO-10303-21")
}

func (p *parser) parseHeader(h *Header) error {
	for {
		kw := p.keyword()
		if kw == "ENDSEC" {
			return p.expect(';')
		}
		if kw == "" {
			return p.errorf("unterminated header section")
		}
		params, err := p.paramList()
		if err != nil {
			return err
		}
		if err := p.expect(';'); err != nil {
			return err
		}
		str := func(i int) string {
			if i >= len(params) {
				return ""
			}
			s, _ := AsString(params[i])
			return s
		}
		strs := func(i int) []string {
			if i >= len(params) {
				return nil
			}
			l, _ := AsList(params[i])
			var out []string
			for _, x := range l {
				if s, err := AsString(x); err == nil {
					out = append(out, s)
				}
			}
			return out
		}
		switch kw {
		case "FILE_DESCRIPTION":
			h.Description = strs(0)
			h.ImplementationLevel = str(1)
		case "FILE_NAME":
			h.Name, h.TimeStamp = str(0), str(1)
			h.Author, h.Organization = strs(2), strs(3)
			h.PreprocessorVersion, h.OriginatingSystem, h.Authorization = str(4), str(5), str(6)
		case "FILE_SCHEMA":
			if s := strs(0); len(s) > 0 {
				h.Schema = s[0]
			}
		}
	}
}

func (p *parser) parseEntity(f *File) error {
	line := p.line
	p.pos++ // '#'
	id, err := p.digits()
	if err != nil {
		return err
	}
	if err := p.expect('='); err != nil {
		return err
	}
	if p.peek() == '(' {
		return p.errorf("complex entity instance #%d is not supported", id)
	}
	typ := p.keyword()
	if typ == "" {
		return p.errorf("missing entity type for #%d", id)
	}
	params, err := p.paramList()
	if err != nil {
		return err
	}
	if err := p.expect(';'); err != nil {
		return err
	}
	if err := f.insert(Ref(id), typ, params); err != nil {
		return &SyntaxError{Line: line, Msg: err.Error()}
	}
	return nil
}

func (p *parser) digits() (int, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("want digits after '#'")
	}
	n, err := strconv.Atoi(string(p.src[start:p.pos]))
	if err != nil {
		return 0, p.errorf("bad instance number: %v", err)
	}
	return n, nil
}

// paramList parses "(" [param {"," param}] ")".
func (p *parser) paramList() (List, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	out := List{}
	if p.peek() == ')' {
		p.pos++
		return out, nil
	}
	for {
		v, err := p.param()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("want ',' or ')' in parameter list, got %q", p.peek())
		}
	}
}

func (p *parser) param() (Param, error) {
	c := p.peek()
	switch {
	case c == '$':
		p.pos++
		return Unset{}, nil
	case c == '*':
		p.pos++
		return Derived{}, nil
	case c == '#':
		p.pos++
		n, err := p.digits()
		return Ref(n), err
	case c == '\'':
		return p.stringLit()
	case c == '.':
		return p.enum()
	case c == '(':
		return p.paramList()
	case c == '-' || c == '+' || c >= '0' && c <= '9':
		return p.number()
	case c == '"':
		return nil, p.errorf("binary parameters are not supported")
	case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_':
		name := p.keyword()
		if err := p.expect('('); err != nil {
			return nil, err
		}
		v, err := p.param()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Typed{Name: name, Value: v}, nil
	case c == 0:
		return nil, p.errorf("unexpected end of input in parameter")
	}
	return nil, p.errorf("unexpected %q in parameter", c)
}

func (p *parser) enum() (Param, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '.' {
		c := p.src[p.pos]
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return nil, p.errorf("bad enumeration character %q", c)
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unterminated enumeration")
	}
	v := Enum(strings.ToUpper(string(p.src[start:p.pos])))
	p.pos++
	return v, nil
}

func (p *parser) number() (Param, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	isReal := false
scan:
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c >= '0' && c <= '9':
		case c == '.':
			isReal = true
		case c == 'E' || c == 'e':
			isReal = true
			if p.pos+1 < len(p.src) && (p.src[p.pos+1] == '-' || p.src[p.pos+1] == '+') {
				p.pos++
			}
		default:
			break scan
		}
		p.pos++
	}
	text := string(p.src[start:p.pos])
	if isReal {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("bad real %q", text)
		}
		return Real(v), nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf("bad integer %q", text)
	}
	return Integer(v), nil
}

// stringLit reads a quoted string, undoing '' and \\ escapes and the
// \X\, \X2\ and \X4\ control directives.
func (p *parser) stringLit() (Param, error) {
	p.pos++
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == '\'':
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
				sb.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return String(sb.String()), nil
		case c == '\\':
			n, err := p.escape(&sb)
			if err != nil {
				return nil, err
			}
			p.pos += n
		default:
			if c == '\n' {
				p.line++
			}
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(sb *strings.Builder) (int, error) {
	rest := p.src[p.pos:]
	switch {
	case bytes.HasPrefix(rest, []byte(`\\`)):
		sb.WriteByte('\\')
		return 2, nil
	case bytes.HasPrefix(rest, []byte(`\X2\`)), bytes.HasPrefix(rest, []byte(`\X4\`)):
		width := 4
		if rest[2] == '4' {
			width = 8
		}
		end := bytes.Index(rest[4:], []byte(`\X0\`))
		if end < 0 {
			return 0, p.errorf("unterminated \\X%c\\ directive", rest[2])
		}
		hex := string(rest[4 : 4+end])
		if len(hex)%width != 0 {
			return 0, p.errorf("bad \\X%c\\ directive length", rest[2])
		}
		var units []uint16
		for i := 0; i < len(hex); i += width {
			v, err := strconv.ParseUint(hex[i:i+width], 16, 32)
			if err != nil {
				return 0, p.errorf("bad hex in \\X%c\\ directive", rest[2])
			}
			if width == 8 {
				sb.WriteRune(rune(v))
			} else {
				units = append(units, uint16(v))
			}
		}
		sb.WriteString(string(utf16.Decode(units)))
		return 4 + end + 4, nil
	case bytes.HasPrefix(rest, []byte(`\X\`)) && len(rest) >= 5:
		v, err := strconv.ParseUint(string(rest[3:5]), 16, 8)
		if err != nil {
			return 0, p.errorf("bad \\X\\ directive")
		}
		sb.WriteRune(rune(v))
		return 5, nil
	}
	// unknown directive: keep the backslash
	sb.WriteByte('\\')
	return 1, nil
}
