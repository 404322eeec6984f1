package extractor

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// decodePageText converts one decoded PDF content stream into plain text.
//
// The decoder walks the operator stream and honours the text-showing
// subset: Tj, TJ, ' and " emit strings; BT resets the line position;
// Td, TD, Tm and T* move it. Shows that land on a new vertical position
// start a new output line; shows on the same line are joined with a
// double space so downstream table detection can split columns the way
// layout-preserving extractors do.
//
// wordGapKern is the TJ kerning adjustment (thousandths of an em,
// negative moves right) treated as an inter-word gap.
const wordGapKern = -180

type streamDecoder struct {
	data []byte
	pos  int

	// text state
	y         float64
	lastY     float64
	shown     bool
	operands  []float64
	pending   []string
	inArray   bool
	arrayGaps []bool // pending[i] preceded by a word-gap kern

	out      strings.Builder
	lastByte byte
}

func decodePageText(stream []byte) string {
	d := &streamDecoder{data: stream}
	d.run()
	return strings.TrimRight(d.out.String(), "\n")
}

func (d *streamDecoder) run() {
	for d.pos < len(d.data) {
		c := d.data[d.pos]
		switch {
		case isWhitespace(c):
			d.pos++
		case c == '%':
			d.skipComment()
		case c == '(':
			d.pushString(d.readLiteralString())
		case c == '<':
			if d.pos+1 < len(d.data) && d.data[d.pos+1] == '<' {
				d.pos += 2 // dictionary; its contents tokenize harmlessly
			} else {
				d.pushString(d.readHexString())
			}
		case c == '>':
			d.pos++
		case c == '[':
			d.inArray = true
			d.pending = d.pending[:0]
			d.arrayGaps = d.arrayGaps[:0]
			d.pos++
		case c == ']':
			d.inArray = false
			d.pos++
		case c == '/':
			d.skipName()
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			d.readNumber()
		default:
			d.handleOperator(d.readToken())
		}
	}
}

func (d *streamDecoder) pushString(s string) {
	if d.inArray {
		gap := len(d.operands) > 0 && d.operands[len(d.operands)-1] <= wordGapKern
		d.arrayGaps = append(d.arrayGaps, gap)
		d.operands = d.operands[:0]
	}
	d.pending = append(d.pending, s)
}

// handleOperator consumes the operand and string stacks.
func (d *streamDecoder) handleOperator(op string) {
	switch op {
	case "BT":
		d.y = 0
	case "Td", "TD":
		if ty, ok := d.lastOperand(); ok {
			d.y += ty
		}
	case "Tm":
		// operands a b c d e f; f is the vertical translation
		if len(d.operands) >= 6 {
			d.y = d.operands[len(d.operands)-1]
		}
	case "T*":
		d.y -= 1
	case "Tj":
		d.show(d.joinPending())
	case "'", "\"":
		d.y -= 1
		d.show(d.joinPending())
	case "TJ":
		d.show(d.joinPending())
	case "BI":
		d.skipInlineImage()
	}
	d.operands = d.operands[:0]
	if op != "Tj" && op != "TJ" && op != "'" && op != "\"" {
		d.pending = d.pending[:0]
		d.arrayGaps = d.arrayGaps[:0]
	}
}

func (d *streamDecoder) lastOperand() (float64, bool) {
	if len(d.operands) == 0 {
		return 0, false
	}
	return d.operands[len(d.operands)-1], true
}

// joinPending concatenates buffered strings, inserting a space where a
// TJ kern adjustment marked a word gap.
func (d *streamDecoder) joinPending() string {
	if len(d.pending) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, s := range d.pending {
		if i > 0 && i < len(d.arrayGaps) && d.arrayGaps[i] {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	d.pending = d.pending[:0]
	d.arrayGaps = d.arrayGaps[:0]
	return sb.String()
}

// show appends decoded text to the output, breaking the line when the
// vertical position moved since the previous show.
func (d *streamDecoder) show(text string) {
	if text == "" {
		return
	}
	if d.shown {
		if math.Abs(d.y-d.lastY) > 0.5 {
			d.out.WriteByte('\n')
			d.lastByte = '\n'
		} else if d.lastByte != ' ' && !strings.HasPrefix(text, " ") {
			d.out.WriteString("  ")
			d.lastByte = ' '
		}
	}
	d.out.WriteString(text)
	d.lastByte = text[len(text)-1]
	d.lastY = d.y
	d.shown = true
}

// readLiteralString parses a parenthesised string with PDF escapes and
// balanced nesting.
func (d *streamDecoder) readLiteralString() string {
	d.pos++ // consume '('
	depth := 1
	var buf []byte
	for d.pos < len(d.data) {
		c := d.data[d.pos]
		switch c {
		case '\\':
			d.pos++
			if d.pos >= len(d.data) {
				return decodeTextBytes(buf)
			}
			e := d.data[d.pos]
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '(', ')', '\\':
				buf = append(buf, e)
			case '\n':
				// line continuation
			case '\r':
				if d.pos+1 < len(d.data) && d.data[d.pos+1] == '\n' {
					d.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && d.pos+1 < len(d.data); k++ {
						n := d.data[d.pos+1]
						if n < '0' || n > '7' {
							break
						}
						val = val*8 + int(n-'0')
						d.pos++
					}
					buf = append(buf, byte(val))
				} else {
					buf = append(buf, e)
				}
			}
			d.pos++
		case '(':
			depth++
			buf = append(buf, c)
			d.pos++
		case ')':
			depth--
			d.pos++
			if depth == 0 {
				return decodeTextBytes(buf)
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
			d.pos++
		}
	}
	return decodeTextBytes(buf)
}

// readHexString parses <hexdigits>, padding an odd final digit with 0.
func (d *streamDecoder) readHexString() string {
	d.pos++ // consume '<'
	var digits []byte
	for d.pos < len(d.data) && d.data[d.pos] != '>' {
		c := d.data[d.pos]
		if isHexDigit(c) {
			digits = append(digits, c)
		}
		d.pos++
	}
	if d.pos < len(d.data) {
		d.pos++ // consume '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	buf := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		buf = append(buf, hexVal(digits[i])<<4|hexVal(digits[i+1]))
	}
	return decodeTextBytes(buf)
}

func (d *streamDecoder) readNumber() {
	start := d.pos
	d.pos++
	for d.pos < len(d.data) {
		c := d.data[d.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			d.pos++
		} else {
			break
		}
	}
	if f, err := strconv.ParseFloat(string(d.data[start:d.pos]), 64); err == nil {
		d.operands = append(d.operands, f)
	}
}

func (d *streamDecoder) readToken() string {
	start := d.pos
	for d.pos < len(d.data) && !isDelimiter(d.data[d.pos]) {
		d.pos++
	}
	if d.pos == start {
		d.pos++ // lone delimiter byte, skip it
		return ""
	}
	return string(d.data[start:d.pos])
}

func (d *streamDecoder) skipName() {
	d.pos++
	for d.pos < len(d.data) && !isDelimiter(d.data[d.pos]) {
		d.pos++
	}
}

func (d *streamDecoder) skipComment() {
	for d.pos < len(d.data) && d.data[d.pos] != '\n' {
		d.pos++
	}
}

// skipInlineImage advances past BI ... ID <binary> EI.
func (d *streamDecoder) skipInlineImage() {
	for d.pos+1 < len(d.data) {
		if d.data[d.pos] == 'E' && d.data[d.pos+1] == 'I' &&
			(d.pos+2 >= len(d.data) || isWhitespace(d.data[d.pos+2])) {
			d.pos += 2
			return
		}
		d.pos++
	}
	d.pos = len(d.data)
}

// decodeTextBytes maps raw string bytes to UTF-8. Strings with a
// UTF-16BE byte-order mark are decoded as UTF-16; everything else is
// treated as Latin-1, which covers the simple fonts government
// publishers use.
func decodeTextBytes(buf []byte) string {
	if len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF {
		codes := make([]uint16, 0, (len(buf)-2)/2)
		for i := 2; i+1 < len(buf); i += 2 {
			codes = append(codes, uint16(buf[i])<<8|uint16(buf[i+1]))
		}
		return string(utf16.Decode(codes))
	}
	runes := make([]rune, len(buf))
	for i, b := range buf {
		runes[i] = rune(b)
	}
	return string(runes)
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return isWhitespace(c) || c == '(' || c == ')' || c == '<' || c == '>' ||
		c == '[' || c == ']' || c == '{' || c == '}' || c == '/' || c == '%'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
