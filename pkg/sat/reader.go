package sat

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type readState int

const (
	scanningHeader readState = iota
	scanningRecords
	done
)

var terminators = map[string]bool{
	"End-of-ACIS-data":            true,
	"End-of-ASM-data":             true,
	"End-of-ACIS-History-Section": true,
	"Begin-of-ACIS-History-Data":  true,
}

// Parse reads a SAT text file. Scanning stops at the first end-of-data or
// history marker; a file that simply ends after a complete record is
// accepted.
func Parse(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sat: read: %w", err)
	}
	if isBinary(src) {
		return nil, ErrBinaryNotSupported
	}
	rd := &reader{src: src, line: 1, doc: &Document{}}
	for rd.state != done {
		switch rd.state {
		case scanningHeader:
			err = rd.header()
		case scanningRecords:
			err = rd.record()
		}
		if err != nil {
			return nil, err
		}
	}
	return rd.doc, nil
}

func isBinary(src []byte) bool {
	if bytes.HasPrefix(src, []byte("ACIS BinaryFile")) {
		return true
	}
	first := src
	if i := bytes.IndexByte(src, '\n'); i >= 0 {
		first = src[:i]
	}
	return bytes.IndexByte(first, 0) >= 0
}

type reader struct {
	src   []byte
	pos   int
	line  int
	state readState
	doc   *Document
}

type token struct {
	text string
	// str marks an @n length-prefixed string.
	str  bool
	line int
}

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

func (rd *reader) header() error {
	line, n, ok := rd.readLine()
	if !ok {
		return &SyntaxError{Line: n, Msg: "missing version line"}
	}
	nums := strings.Fields(line)
	if len(nums) == 0 {
		return &SyntaxError{Line: n, Msg: "empty version line"}
	}
	ints := make([]int, 4)
	for i := 0; i < len(nums) && i < len(ints); i++ {
		v, err := strconv.Atoi(nums[i])
		if err != nil {
			return &SyntaxError{Line: n, Msg: fmt.Sprintf("bad header value %q", nums[i])}
		}
		ints[i] = v
	}
	h := &rd.doc.Header
	h.Version, h.NumRecords, h.NumBodies, h.HistoryFlag = ints[0], ints[1], ints[2], ints[3]
	if h.Version < MinVersion || h.Version > MaxVersion {
		return &UnsupportedVersionError{Version: h.Version}
	}

	line, n, ok = rd.readLine()
	if !ok {
		return &SyntaxError{Line: n, Msg: "missing product line"}
	}
	strs, err := lengthPrefixed(line)
	if err != nil {
		return &SyntaxError{Line: n, Msg: err.Error()}
	}
	switch {
	case len(strs) >= 3:
		h.Date = strs[2]
		fallthrough
	case len(strs) == 2:
		h.AcisVersion = strs[1]
		fallthrough
	case len(strs) == 1:
		h.Product = strs[0]
	default:
		h.Product = strings.TrimSpace(line)
	}

	line, n, ok = rd.readLine()
	if !ok {
		return &SyntaxError{Line: n, Msg: "missing units line"}
	}
	units := strings.Fields(line)
	if len(units) < 3 {
		return &SyntaxError{Line: n, Msg: "units line needs scale, resabs and resnor"}
	}
	for i, dst := range []*float64{&h.Scale, &h.ResAbs, &h.ResNor} {
		v, err := strconv.ParseFloat(units[i], 64)
		if err != nil {
			return &SyntaxError{Line: n, Msg: fmt.Sprintf("bad units value %q", units[i])}
		}
		*dst = v
	}
	rd.state = scanningRecords
	return nil
}

// readLine returns the next line and its number.
func (rd *reader) readLine() (string, int, bool) {
	n := rd.line
	if rd.pos >= len(rd.src) {
		return "", n, false
	}
	rest := rd.src[rd.pos:]
	i := bytes.IndexByte(rest, '\n')
	if i < 0 {
		rd.pos = len(rd.src)
		return strings.TrimRight(string(rest), "\r"), n, true
	}
	rd.pos += i + 1
	rd.line++
	return strings.TrimRight(string(rest[:i]), "\r"), n, true
}

// lengthPrefixed splits a line of "@n text" strings.
func lengthPrefixed(line string) ([]string, error) {
	var out []string
	for i := 0; i < len(line); {
		if line[i] != '@' {
			i++
			continue
		}
		j := i + 1
		for j < len(line) && line[j] >= '0' && line[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(line[i+1 : j])
		if err != nil || j >= len(line) || line[j] != ' ' {
			return nil, fmt.Errorf("bad string prefix at column %d", i+1)
		}
		start := j + 1
		if n > len(line)-start {
			return nil, fmt.Errorf("string at column %d runs past end of line", i+1)
		}
		out = append(out, line[start:start+n])
		i = start + n
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

func (rd *reader) record() error {
	tok, ok, err := rd.next()
	if err != nil {
		return err
	}
	if !ok {
		rd.state = done
		return nil
	}
	if !tok.str && terminators[tok.text] {
		rd.state = done
		return nil
	}

	index := len(rd.doc.Records)
	if n, isNum := recordNumber(tok); isNum {
		if n != index {
			return &SyntaxError{Line: tok.line, Msg: fmt.Sprintf("record number -%d out of sequence, want -%d", n, index)}
		}
		if tok, ok, err = rd.next(); err != nil {
			return err
		} else if !ok {
			return &SyntaxError{Line: rd.line, Msg: fmt.Sprintf("record -%d has no type", n)}
		}
	}
	if tok.str || tok.text == "#" || tok.text == "{" || tok.text == "}" {
		return &SyntaxError{Line: tok.line, Msg: fmt.Sprintf("expected entity type, found %q", tok.text)}
	}

	rec := &Record{Index: index, Type: tok.text, Line: tok.line}
	chunks, err := rd.chunks(rec, "#")
	if err != nil {
		return err
	}
	rec.Chunks = chunks
	rd.doc.Records = append(rd.doc.Records, rec)
	return nil
}

func recordNumber(tok token) (int, bool) {
	if tok.str || len(tok.text) < 2 || tok.text[0] != '-' {
		return 0, false
	}
	n, err := strconv.Atoi(tok.text[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// chunks reads fields up to closing. Nested sub-type blocks are registered
// in the document's table before their contents are read, so numbering
// follows the order of the opening braces.
func (rd *reader) chunks(rec *Record, closing string) ([]Chunk, error) {
	var out []Chunk
	for {
		tok, ok, err := rd.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &SyntaxError{Line: rec.Line, Msg: fmt.Sprintf("unterminated %s record", rec.Type)}
		}
		if tok.str {
			out = append(out, stringChunk(tok.text))
			continue
		}
		switch tok.text {
		case closing:
			return out, nil
		case "{":
			sub := &Subtype{Index: len(rd.doc.Subtypes), Record: rec.Index}
			rd.doc.Subtypes = append(rd.doc.Subtypes, sub)
			if rec.Subtype == nil {
				rec.Subtype = sub
			}
			body, err := rd.chunks(rec, "}")
			if err != nil {
				return nil, err
			}
			if len(body) == 0 {
				return nil, &SyntaxError{Line: tok.line, Msg: "empty sub-type block"}
			}
			sub.Type, sub.Chunks = body[0].String(), body[1:]
			out = append(out, Chunk{Kind: ChunkSubtype, Ref: sub.Index, Sub: sub})
		case "#", "}":
			return nil, &SyntaxError{Line: tok.line, Msg: fmt.Sprintf("unexpected %q in %s record", tok.text, rec.Type)}
		default:
			out = append(out, ParseChunk(tok.text))
		}
	}
}

// next returns the next token, or ok == false at end of input.
func (rd *reader) next() (token, bool, error) {
	src := rd.src
	for rd.pos < len(src) && isSpace(src[rd.pos]) {
		if src[rd.pos] == '\n' {
			rd.line++
		}
		rd.pos++
	}
	if rd.pos >= len(src) {
		return token{}, false, nil
	}
	start, line := rd.pos, rd.line

	if src[start] == '@' {
		j := start + 1
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			j++
		}
		if j > start+1 && j < len(src) && src[j] == ' ' {
			n, err := strconv.Atoi(string(src[start+1 : j]))
			if err != nil {
				return token{}, false, &SyntaxError{Line: line, Msg: fmt.Sprintf("bad string length %q", src[start+1:j])}
			}
			body := j + 1
			if n > len(src)-body {
				return token{}, false, &SyntaxError{Line: line, Msg: "string runs past end of input"}
			}
			text := string(src[body : body+n])
			rd.line += strings.Count(text, "\n")
			rd.pos = body + n
			return token{text: text, str: true, line: line}, true, nil
		}
	}

	for rd.pos < len(src) && !isSpace(src[rd.pos]) {
		rd.pos++
	}
	text := string(src[start:rd.pos])
	if len(text) > 1 && strings.HasSuffix(text, "#") {
		rd.pos--
		text = text[:len(text)-1]
	}
	return token{text: text, line: line}, true, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
