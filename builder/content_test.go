package builder

import "testing"

func TestNumberFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.000"},
		{-0.0001, "0.000"},
		{1.5, "1.500"},
		{-2.25, "-2.250"},
		{595.2756, "595.276"},
		{1e6, "1000000.000"},
	}
	for _, tc := range tests {
		if got := num(tc.in); got != tc.want {
			t.Errorf("num(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTextString(t *testing.T) {
	if got := textString("plain").Bytes; string(got) != "plain" {
		t.Fatalf("ascii = %q", got)
	}
	got := textString("é").Bytes
	want := []byte{0xFE, 0xFF, 0x00, 0xE9}
	if string(got) != string(want) {
		t.Fatalf("utf-16 = % x, want % x", got, want)
	}
}
