package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"errors"
	"testing"

	"github.com/wudi/pdfcore/ir/raw"
)

func TestFlateRoundTrip(t *testing.T) {
	in := []byte("BT /F1 12 Tf 100.000 92.000 Td [<48656C6C6F>] TJ ET\n")
	enc, err := FlateEncode(in, zlib.BestCompression)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := NewFlateDecoder().Decode(enc, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("round trip mismatch: %q", out)
	}
}

func TestFlateDecodeBareDeflate(t *testing.T) {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.BestSpeed)
	w.Write([]byte("hello world"))
	w.Close()

	out, err := NewFlateDecoder().Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestASCIIDecoders(t *testing.T) {
	tests := []struct {
		name string
		dec  Decoder
		in   string
		want string
	}{
		{name: "hex", dec: NewASCIIHexDecoder(), in: "48 65 6c6c 6f>", want: "Hello"},
		{name: "hex odd", dec: NewASCIIHexDecoder(), in: "414>", want: "A@"},
		{name: "ascii85", dec: NewASCII85Decoder(), in: "<~87cURDZ~>", want: "Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.dec.Decode([]byte(tt.in), nil)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if string(out) != tt.want {
				t.Fatalf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestPipelineDecodeStream(t *testing.T) {
	enc, _ := FlateEncode([]byte("q Q"), zlib.DefaultCompression)
	dict := raw.Dict()
	dict.Set("Filter", raw.NewArray(raw.NameLiteral("FlateDecode")))
	out, err := DefaultPipeline().DecodeStream(raw.NewStream(dict, enc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != "q Q" {
		t.Fatalf("got %q", out)
	}

	dict.Set("Filter", raw.NameLiteral("JBIG2Decode"))
	_, err = DefaultPipeline().DecodeStream(raw.NewStream(dict, enc))
	var unsupported *UnsupportedFilterError
	if !errors.As(err, &unsupported) || unsupported.Name != "JBIG2Decode" {
		t.Fatalf("expected unsupported filter error, got %v", err)
	}
}
