package writer

import (
	"bytes"
	"strconv"

	"github.com/wudi/pdfcore/ir/raw"
)

// Serialize renders o in PDF syntax. Dictionary keys keep their order.
func Serialize(o raw.Object) []byte {
	var b bytes.Buffer
	appendObject(&b, o)
	return b.Bytes()
}

func appendObject(b *bytes.Buffer, o raw.Object) {
	switch v := o.(type) {
	case raw.NameObj:
		appendName(b, v.Val)
	case raw.NumberObj:
		if v.IsInteger() {
			b.WriteString(strconv.FormatInt(v.Int(), 10))
		} else {
			b.WriteString(FormatReal(v.Float()))
		}
	case raw.BoolObj:
		if v.Value() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case raw.NullObj:
		b.WriteString("null")
	case raw.StringObj:
		if v.Hex {
			appendHexString(b, v.Bytes)
		} else {
			appendLiteralString(b, v.Bytes)
		}
	case *raw.ArrayObj:
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			appendObject(b, it)
		}
		b.WriteByte(']')
	case *raw.DictObj:
		b.WriteString("<<")
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			appendName(b, k)
			b.WriteByte(' ')
			appendObject(b, val)
		}
		b.WriteString(">>")
	case *raw.StreamObj:
		dict := v.Dict
		if dict == nil {
			dict = raw.Dict()
		}
		dict.Set("Length", raw.NumberInt(int64(len(v.Data))))
		appendObject(b, dict)
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
	case raw.RefObj:
		b.WriteString(strconv.Itoa(v.R.Num))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(v.R.Gen))
		b.WriteString(" R")
	default:
		b.WriteString("null")
	}
}

// FormatReal writes a real without exponent and without trailing zeros.
func FormatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

func appendName(b *bytes.Buffer, name string) {
	b.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			b.WriteByte('#')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
			continue
		}
		b.WriteByte(c)
	}
}

func appendLiteralString(b *bytes.Buffer, s []byte) {
	b.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
}

func appendHexString(b *bytes.Buffer, s []byte) {
	b.WriteByte('<')
	for _, c := range s {
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	b.WriteByte('>')
}

const hexDigits = "0123456789ABCDEF"

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
