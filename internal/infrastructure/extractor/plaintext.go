package extractor

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodePlainText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(raw), nil
}
