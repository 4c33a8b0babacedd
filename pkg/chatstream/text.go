package chatstream

import (
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textReader reads a response body as UTF-8 text in pieces that never end
// partway through a rune. Invalid byte sequences become U+FFFD.
type textReader struct {
	r     io.Reader
	buf   []byte
	carry []byte
}

func newTextReader(r io.Reader, size int) *textReader {
	return &textReader{
		r:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		buf: make([]byte, max(size, utf8.UTFMax)),
	}
}

// Next returns the next piece of text, which may be empty. At end of body it
// returns the remaining text together with io.EOF.
func (t *textReader) Next() (string, error) {
	n, err := t.r.Read(t.buf)
	chunk := append(t.carry, t.buf[:n]...)
	t.carry = nil

	if err == nil {
		k := completeRunes(chunk)
		t.carry = append([]byte(nil), chunk[k:]...)
		chunk = chunk[:k]
	}
	return string(chunk), err
}

// completeRunes returns the length of the longest prefix of b that ends on
// a rune boundary.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
