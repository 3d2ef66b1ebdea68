package source

import (
	"testing"
)

func TestNormalizeCRLF(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"empty", "", "", false},
		{"plain", "abc\ndef", "abc\ndef", false},
		{"crlf", "abc\r\ndef", "abc\ndef", true},
		{"lone cr kept", "abc\rdef", "abc\rdef", false},
		{"mixed", "a\r\nb\rc\r\n", "a\nb\rc\n", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := normalizeCRLF([]byte(tc.in))
			if string(got) != tc.want || changed != tc.changed {
				t.Errorf("normalizeCRLF(%q) = %q, %v; want %q, %v", tc.in, got, changed, tc.want, tc.changed)
			}
		})
	}
}

func TestToLineCol(t *testing.T) {
	content := []byte("ab\ncd\tef\n世ghi")
	idx := buildLineIndex(content)

	cases := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{"start", 0, LineCol{1, 1}},
		{"mid first line", 1, LineCol{1, 2}},
		{"start second line", 3, LineCol{2, 1}},
		{"after tab rounds to stop", 6, LineCol{2, 5}},
		{"after wide rune counts two cells", 12, LineCol{3, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := toLineCol(content, idx, tc.off)
			if got != tc.want {
				t.Errorf("toLineCol(off=%d) = %+v, want %+v", tc.off, got, tc.want)
			}
		})
	}
}

func TestBuildLineIndex(t *testing.T) {
	idx := buildLineIndex([]byte("a\nb\nc"))
	if len(idx) != 2 || idx[0] != 1 || idx[1] != 3 {
		t.Errorf("buildLineIndex = %v, want [1 3]", idx)
	}
}
