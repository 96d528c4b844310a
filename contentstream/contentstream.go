// Package contentstream reads page content streams back into operations.
package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/scanner"
)

var (
	ErrUnbalanced = errors.New("contentstream: Q without matching q")
	ErrInlineData = errors.New("contentstream: inline image without EI")
)

const maxNesting = 64

// Operation is one operator with the operands that preceded it. An inline
// image is a BI operation whose single operand is a stream holding the
// image dictionary and data.
type Operation struct {
	Operator string
	Operands []raw.Object
}

type reader struct {
	s    scanner.Scanner
	data []byte
}

// Parse splits data into operations. Operands left over at the end are
// dropped.
func Parse(data []byte) ([]Operation, error) {
	r := &reader{s: scanner.New(data, scanner.Config{}), data: data}
	var ops []Operation
	var operands []raw.Object
	for {
		tok, err := r.s.Next()
		if err == io.EOF {
			return ops, nil
		}
		if err != nil {
			return ops, err
		}
		if tok.Type != scanner.TokenKeyword {
			v, err := r.value(tok, 0)
			if err != nil {
				return ops, err
			}
			operands = append(operands, v)
			continue
		}
		op := Operation{Operator: tok.Str, Operands: operands}
		if tok.Str == "BI" {
			img, err := r.inlineImage()
			if err != nil {
				return ops, err
			}
			op.Operands = []raw.Object{img}
		}
		ops = append(ops, op)
		operands = nil
	}
}

func (r *reader) value(tok scanner.Token, depth int) (raw.Object, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("contentstream: nesting deeper than %d at %d", maxNesting, tok.Pos)
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.NameLiteral(tok.Str), nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int), nil
		}
		return raw.NumberFloat(tok.Float), nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenArray:
		arr := raw.NewArray()
		for {
			next, err := r.s.Next()
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			if next.Type == scanner.TokenKeyword && next.Str == "]" {
				return arr, nil
			}
			v, err := r.value(next, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
	case scanner.TokenDict:
		return r.dict(depth+1, ">>")
	}
	return nil, fmt.Errorf("contentstream: unexpected %s %q at %d", tok.Type, tok.Str, tok.Pos)
}

// dict reads name/value pairs up to the end keyword.
func (r *reader) dict(depth int, end string) (*raw.DictObj, error) {
	d := raw.Dict()
	for {
		key, err := r.s.Next()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		if key.Type == scanner.TokenKeyword && key.Str == end {
			return d, nil
		}
		if key.Type != scanner.TokenName {
			return nil, fmt.Errorf("contentstream: expected name key at %d", key.Pos)
		}
		tok, err := r.s.Next()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		v, err := r.value(tok, depth)
		if err != nil {
			return nil, err
		}
		d.Set(key.Str, v)
	}
}

// inlineImage reads "BI <pairs> ID <data> EI". The data ends at the first
// EI that stands between white space and a delimiter.
func (r *reader) inlineImage() (*raw.StreamObj, error) {
	d, err := r.dict(1, "ID")
	if err != nil {
		return nil, err
	}
	start := r.s.Position() + 1 // one white-space byte follows ID
	for i := start; i+2 <= int64(len(r.data)); i++ {
		if !bytes.HasPrefix(r.data[i:], []byte("EI")) || !isSpace(r.data[i-1]) {
			continue
		}
		if end := i + 2; end < int64(len(r.data)) && !isSpace(r.data[end]) {
			continue
		}
		data := r.data[min(start, i-1) : i-1]
		if err := r.s.Seek(i + 2); err != nil {
			return nil, err
		}
		return raw.NewStream(d, append([]byte(nil), data...)), nil
	}
	return nil, ErrInlineData
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Depth returns how many q operators are still open after ops.
func Depth(ops []Operation) (int, error) {
	depth := 0
	for i, op := range ops {
		switch op.Operator {
		case "q":
			depth++
		case "Q":
			if depth == 0 {
				return 0, fmt.Errorf("%w at operation %d", ErrUnbalanced, i)
			}
			depth--
		}
	}
	return depth, nil
}
