package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/wudi/pdfcore/ir/raw"
)

type Decoder interface {
	Name() string
	Decode(input []byte, params *raw.DictObj) ([]byte, error)
}

// Pipeline applies a chain of decoders in /Filter order.
type Pipeline struct {
	decoders map[string]Decoder
	limits   Limits
}

type Limits struct {
	MaxDecompressedSize int64
}

// UnsupportedFilterError names a filter with no registered decoder.
type UnsupportedFilterError struct{ Name string }

func (e *UnsupportedFilterError) Error() string { return "unsupported filter: " + e.Name }

// NewPipeline constructs a pipeline with provided decoders and limits.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	p := &Pipeline{decoders: make(map[string]Decoder, len(decoders)), limits: limits}
	for _, d := range decoders {
		p.decoders[d.Name()] = d
	}
	return p
}

// DefaultPipeline knows the text-oriented filters this library writes or
// commonly meets in page content.
func DefaultPipeline() *Pipeline {
	return NewPipeline([]Decoder{NewFlateDecoder(), NewASCIIHexDecoder(), NewASCII85Decoder()}, Limits{})
}

func (p *Pipeline) Decode(input []byte, filterNames []string, params []*raw.DictObj) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		dec, ok := p.decoders[name]
		if !ok {
			return nil, &UnsupportedFilterError{Name: name}
		}
		var param *raw.DictObj
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(data, param)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, fmt.Errorf("%s: decompressed size exceeds limit", name)
		}
		data = out
	}
	return data, nil
}

// DecodeStream returns the decoded payload of s.
func (p *Pipeline) DecodeStream(s *raw.StreamObj) ([]byte, error) {
	names, params := chain(s.Dict)
	return p.Decode(s.Data, names, params)
}

type flateDecoder struct{}

func (flateDecoder) Name() string { return "FlateDecode" }
func NewFlateDecoder() Decoder    { return flateDecoder{} }

// Decode reads a zlib stream. Some writers emit bare deflate data, so that
// is tried when the zlib header is missing.
func (flateDecoder) Decode(in []byte, _ *raw.DictObj) ([]byte, error) {
	var out bytes.Buffer
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err == nil {
		defer zr.Close()
		if _, err := io.Copy(&out, zr); err != nil && out.Len() == 0 {
			return nil, err
		}
		return out.Bytes(), nil
	}
	fr := flate.NewReader(bytes.NewReader(in))
	defer fr.Close()
	if _, err := io.Copy(&out, fr); err != nil && out.Len() == 0 {
		return nil, err
	}
	return out.Bytes(), nil
}

type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }
func (ascii85Decoder) Decode(in []byte, _ *raw.DictObj) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("~>"))
	out := make([]byte, len(trimmed)*4/5+4)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }
func (asciiHexDecoder) Decode(in []byte, _ *raw.DictObj) ([]byte, error) {
	clean := make([]byte, 0, len(in))
	for _, c := range in {
		if c == '>' {
			break
		}
		if c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0 {
			continue
		}
		clean = append(clean, c)
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	result := make([]byte, hex.DecodedLen(len(clean)))
	n, err := hex.Decode(result, clean)
	if err != nil {
		return nil, err
	}
	return result[:n], nil
}
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

// FlateEncode compresses data in the zlib format FlateDecode expects.
func FlateEncode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
