package p21

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// WriteOptions controls serialization.
type WriteOptions struct {
	// Precision is the number of fractional digits for reals; -1 writes
	// the shortest representation that reads back exactly.
	Precision int
}

// DefaultWriteOptions writes exact reals.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Precision: -1}
}

// Write serializes f as ISO 10303-21 text.
func Write(w io.Writer, f *File, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	h := f.Header

	fmt.Fprintln(bw, "ISO-10303-21;")
	fmt.Fprintln(bw, "HEADER;")
	fmt.Fprintf(bw, "FILE_DESCRIPTION(%s,%s);\n", stringList(h.Description), quote(h.ImplementationLevel))
	fmt.Fprintf(bw, "FILE_NAME(%s,%s,%s,%s,%s,%s,%s);\n",
		quote(h.Name), quote(h.TimeStamp), stringList(h.Author), stringList(h.Organization),
		quote(h.PreprocessorVersion), quote(h.OriginatingSystem), quote(h.Authorization))
	fmt.Fprintf(bw, "FILE_SCHEMA((%s));\n", quote(h.Schema))
	fmt.Fprintln(bw, "ENDSEC;")
	fmt.Fprintln(bw, "DATA;")
	for _, e := range f.entities {
		line, err := FormatEntity(e, opts.Precision)
		if err != nil {
			return err
		}
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	fmt.Fprintln(bw, "ENDSEC;")
	fmt.Fprintln(bw, "END-ISO-10303-21;")
	return bw.Flush()
}

// FormatEntity renders one data section line, e.g. #1=IFCDIRECTION((0.,0.,1.));
func FormatEntity(e *Entity, precision int) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d=%s(", int(e.ID), e.Type)
	for i, p := range e.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeParam(&sb, p, precision); err != nil {
			return "", fmt.Errorf("p21: #%d %s parameter %d: %w", int(e.ID), e.Type, i, err)
		}
	}
	sb.WriteString(");")
	return sb.String(), nil
}

func formatParam(p Param, precision int) string {
	var sb strings.Builder
	if err := writeParam(&sb, p, precision); err != nil {
		return "<" + err.Error() + ">"
	}
	return sb.String()
}

func writeParam(sb *strings.Builder, p Param, precision int) error {
	switch v := p.(type) {
	case Integer:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		s, err := FormatReal(float64(v), precision)
		if err != nil {
			return err
		}
		sb.WriteString(s)
	case String:
		sb.WriteString(quote(string(v)))
	case Enum:
		sb.WriteByte('.')
		sb.WriteString(strings.ToUpper(string(v)))
		sb.WriteByte('.')
	case Ref:
		sb.WriteByte('#')
		sb.WriteString(strconv.Itoa(int(v)))
	case Unset, nil:
		sb.WriteByte('$')
	case Derived:
		sb.WriteByte('*')
	case List:
		sb.WriteByte('(')
		for i, x := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeParam(sb, x, precision); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case Typed:
		sb.WriteString(strings.ToUpper(v.Name))
		sb.WriteByte('(')
		if err := writeParam(sb, v.Value, precision); err != nil {
			return err
		}
		sb.WriteByte(')')
	default:
		return fmt.Errorf("unsupported parameter %T", p)
	}
	return nil
}

// FormatReal renders a real so that it always contains a decimal point,
// with an upper-case exponent when one is needed. Non-finite values
// cannot be represented.
func FormatReal(v float64, precision int) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("non-finite real %v", v)
	}
	if v == 0 {
		// covers -0
		return "0.", nil
	}
	var s string
	abs := math.Abs(v)
	switch {
	case precision >= 0:
		s = strconv.FormatFloat(v, 'f', precision, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(s, "0")
		}
		if s == "-0." || s == "-0" {
			s = "0."
		}
	case abs >= 1e-6 && abs < 1e16:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = strconv.FormatFloat(v, 'E', -1, 64)
	}
	if !strings.Contains(s, ".") {
		if i := strings.IndexByte(s, 'E'); i >= 0 {
			s = s[:i] + "." + s[i:]
		} else {
			s += "."
		}
	}
	return s, nil
}

// quote writes a string literal. Apostrophes and backslashes are doubled;
// characters outside printable ASCII use the \X2\ UTF-16 control directive.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		if r >= 0x20 && r < 0x7f {
			switch r {
			case '\'':
				sb.WriteString("''")
			case '\\':
				sb.WriteString(`\\`)
			default:
				sb.WriteRune(r)
			}
			i++
			continue
		}
		sb.WriteString(`\X2\`)
		for i < len(runes) && (runes[i] < 0x20 || runes[i] >= 0x7f) {
			for _, u := range utf16.Encode([]rune{runes[i]}) {
				fmt.Fprintf(&sb, "%04X", u)
			}
			i++
		}
		sb.WriteString(`\X0\`)
	}
	sb.WriteByte('\'')
	return sb.String()
}

func stringList(ss []string) string {
	if len(ss) == 0 {
		return "('')"
	}
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = quote(s)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
