package extractor

import (
	"strings"
	"testing"
)

func TestDecodeSimpleShows(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf 72 720 Td (Nairobi County Budget) Tj ET
BT 72 700 Td (FY 2023/24) Tj ET`)
	got := decodePageText(stream)
	want := "Nairobi County Budget\nFY 2023/24"
	if got != want {
		t.Errorf("decodePageText = %q, want %q", got, want)
	}
}

func TestDecodeSameLineShowsJoin(t *testing.T) {
	stream := []byte(`BT 72 720 Td (Department) Tj ET
BT 200 720 Td (Allocated) Tj ET
BT 300 720 Td (Actual) Tj ET`)
	got := decodePageText(stream)
	want := "Department  Allocated  Actual"
	if got != want {
		t.Errorf("decodePageText = %q, want %q", got, want)
	}
}

func TestDecodeEscapes(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{"balanced parens", `BT 0 0 Td (Budget \(Revised\)) Tj ET`, "Budget (Revised)"},
		{"nested parens", `BT 0 0 Td (a (b) c) Tj ET`, "a (b) c"},
		{"backslash", `BT 0 0 Td (a\\b) Tj ET`, `a\b`},
		{"octal", `BT 0 0 Td (\110i) Tj ET`, "Hi"},
		{"tab escape", `BT 0 0 Td (a\tb) Tj ET`, "a\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodePageText([]byte(tt.stream)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeTJArrayKerning(t *testing.T) {
	// -2500 is a word gap, -40 is intra-word kerning.
	stream := []byte(`BT 72 720 Td [(Total)-2500(KES)-40(.)] TJ ET`)
	got := decodePageText(stream)
	if got != "Total KES." {
		t.Errorf("decodePageText = %q, want %q", got, "Total KES.")
	}
}

func TestDecodeHexString(t *testing.T) {
	stream := []byte(`BT 0 0 Td <4E616972 6F6269> Tj ET`)
	if got := decodePageText(stream); got != "Nairobi" {
		t.Errorf("decodePageText = %q, want Nairobi", got)
	}
}

func TestDecodeUTF16String(t *testing.T) {
	// FE FF BOM then UTF-16BE "Ksh"
	stream := []byte{'B', 'T', ' ', '0', ' ', '0', ' ', 'T', 'd', ' ', '<', 'F', 'E', 'F', 'F',
		'0', '0', '4', 'B', '0', '0', '7', '3', '0', '0', '6', '8', '>', ' ', 'T', 'j', ' ', 'E', 'T'}
	if got := decodePageText(stream); got != "Ksh" {
		t.Errorf("decodePageText = %q, want Ksh", got)
	}
}

func TestDecodeQuoteOperatorsBreakLine(t *testing.T) {
	stream := []byte(`BT 72 720 Td (First) Tj (Second) ' (Third) ' ET`)
	got := decodePageText(stream)
	want := "First\nSecond\nThird"
	if got != want {
		t.Errorf("decodePageText = %q, want %q", got, want)
	}
}

func TestDecodeTmAndTStarBreakLines(t *testing.T) {
	stream := []byte(`BT 1 0 0 1 72 720 Tm (Row one) Tj 1 0 0 1 72 700 Tm (Row two) Tj T* (Row three) Tj ET`)
	got := decodePageText(stream)
	want := "Row one\nRow two\nRow three"
	if got != want {
		t.Errorf("decodePageText = %q, want %q", got, want)
	}
}

func TestDecodeIgnoresNonText(t *testing.T) {
	stream := []byte(`q 0.5 0 0 0.5 0 0 cm /Im1 Do Q
% a comment (with parens)
BT 72 720 Td (Visible) Tj ET
BI /W 2 /H 2 ID xxEIyy EI
BT 72 700 Td (Also visible) Tj ET`)
	got := decodePageText(stream)
	if !strings.Contains(got, "Visible") || !strings.Contains(got, "Also visible") {
		t.Errorf("decodePageText = %q", got)
	}
	if strings.Contains(got, "comment") {
		t.Errorf("comment text leaked into output: %q", got)
	}
}

func TestDecodeEmptyStream(t *testing.T) {
	if got := decodePageText(nil); got != "" {
		t.Errorf("decodePageText(nil) = %q", got)
	}
}
