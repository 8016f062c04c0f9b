package textbuf

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// CheckEncoding verifies the buffer content is still valid under its
// declared encoding. In UTF-8 mode the content must decode cleanly and
// survive a round trip through UTF-16, which catches surrogate damage that
// utf8.Valid alone would miss on manually assembled inputs.
//
// Режим raw не проверяется никак: там любые байты легальны.
func (b *Buffer) CheckEncoding() error {
	if b.enc != EncodingUTF8 {
		return nil
	}
	if !utf8.Valid(b.content) {
		return fmt.Errorf("buffer is not valid utf-8 after edit")
	}
	return roundTripUTF16(b.content)
}

func roundTripUTF16(content []byte) error {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

	wide, err := enc.NewEncoder().Bytes(content)
	if err != nil {
		return fmt.Errorf("utf-16 encode: %w", err)
	}
	back, err := enc.NewDecoder().Bytes(wide)
	if err != nil {
		return fmt.Errorf("utf-16 decode: %w", err)
	}
	if !bytes.Equal(back, content) {
		return fmt.Errorf("utf-16 round trip altered %d bytes", len(content))
	}
	return nil
}
