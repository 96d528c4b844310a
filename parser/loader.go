package parser

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/recovery"
	"github.com/wudi/pdfcore/scanner"
)

const maxNesting = 256

var (
	errHeaderMismatch = errors.New("object header mismatch")
	errUnexpectedEnd  = errors.New("unexpected endobj")
	errTooDeep        = errors.New("nesting too deep")
)

type tokenReader struct {
	s   scanner.Scanner
	buf []scanner.Token
}

func newTokenReader(s scanner.Scanner) *tokenReader { return &tokenReader{s: s} }

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) { r.buf = append(r.buf, tok) }

// setStreamLengthHint only reaches the scanner when no token is buffered,
// which holds right after a dictionary's closing '>>'.
func (r *tokenReader) setStreamLengthHint(n int64) {
	if len(r.buf) == 0 {
		r.s.SetNextStreamLength(n)
	}
}

// objectParser turns tokens into raw objects for one indirect object.
type objectParser struct {
	tr     *tokenReader
	rec    recovery.Strategy
	num    int
	gen    int
	offset int64
}

func (p *objectParser) location() recovery.Location {
	return recovery.Location{ByteOffset: p.offset, ObjectNum: p.num, ObjectGen: p.gen, Component: "parser"}
}

func (p *objectParser) parseObject(depth int) (raw.Object, error) {
	if depth > maxNesting {
		return nil, errTooDeep
	}
	tok, err := p.tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.NameObj{Val: tok.Str}, nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int), nil
		}
		return raw.NumberFloat(tok.Float), nil
	case scanner.TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenRef:
		return raw.RefObj{R: tok.Ref}, nil
	case scanner.TokenArray:
		return p.parseArray(depth + 1)
	case scanner.TokenDict:
		return p.parseDict(depth + 1)
	}
	if tok.Str == "endobj" {
		return nil, errUnexpectedEnd
	}
	return nil, fmt.Errorf("unexpected token %q at %d", tok.Str, tok.Pos)
}

func (p *objectParser) parseArray(depth int) (*raw.ArrayObj, error) {
	arr := raw.NewArray()
	for {
		tok, err := p.tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "]" {
			return arr, nil
		}
		p.tr.unread(tok)
		item, err := p.parseObject(depth)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (p *objectParser) parseDict(depth int) (*raw.DictObj, error) {
	d := raw.Dict()
	for {
		tok, err := p.tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == ">>" {
			return d, nil
		}
		if tok.Type != scanner.TokenName {
			// a dictionary cut short by endobj is closed where it stands
			if tok.Type == scanner.TokenKeyword && tok.Str == "endobj" {
				err := errors.New("unexpected endobj in dictionary (missing >>)")
				if p.rec.OnError(err, p.location()) == recovery.ActionFail {
					return nil, err
				}
				p.tr.unread(tok)
				return d, nil
			}
			return nil, fmt.Errorf("expected name key in dictionary at %d", tok.Pos)
		}
		val, err := p.parseObject(depth)
		if err != nil {
			return nil, err
		}
		d.Set(tok.Str, val)
	}
}

// readIndirect parses "num gen obj <value> [stream] endobj" at offset.
// lengthOf resolves an indirect /Length before the payload is read.
func readIndirect(data []byte, cfg scanner.Config, rec recovery.Strategy, offset int64, lengthOf func(raw.Object) (int64, bool)) (*Object, error) {
	s := scanner.New(data, cfg)
	if err := s.Seek(offset); err != nil {
		return nil, err
	}
	tr := newTokenReader(s)

	tokNum, err := tr.next()
	if err != nil {
		return nil, err
	}
	tokGen, err := tr.next()
	if err != nil {
		return nil, err
	}
	tokObj, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokNum.Type != scanner.TokenNumber || !tokNum.IsInt ||
		tokGen.Type != scanner.TokenNumber || !tokGen.IsInt ||
		tokObj.Type != scanner.TokenKeyword || tokObj.Str != "obj" {
		return nil, fmt.Errorf("%w at offset %d", errHeaderMismatch, offset)
	}

	p := &objectParser{tr: tr, rec: rec, num: int(tokNum.Int), gen: int(tokGen.Int), offset: offset}
	body, err := p.parseObject(0)
	if err != nil {
		return nil, err
	}
	if dict, ok := body.(*raw.DictObj); ok {
		if lv, ok := dict.Get("Length"); ok {
			if n, ok := lengthOf(lv); ok {
				tr.setStreamLengthHint(n)
			}
		}
		tok, err := tr.next()
		if err == nil && tok.Type == scanner.TokenStream {
			body = raw.NewStream(dict, tok.Bytes)
		}
	}
	return &Object{Num: p.num, Gen: p.gen, Body: body, Offset: offset}, nil
}

// parseBare parses a single value with no object header, as stored inside
// object streams and after the trailer keyword.
func parseBare(data []byte, cfg scanner.Config, rec recovery.Strategy, num int, offset int64) (raw.Object, error) {
	s := scanner.New(data, cfg)
	if err := s.Seek(offset); err != nil {
		return nil, err
	}
	p := &objectParser{tr: newTokenReader(s), rec: rec, num: num, offset: offset}
	return p.parseObject(0)
}
