package utils

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeUTF16LE converts a little endian UTF-16 byte sequence to a string.
func DecodeUTF16LE(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", errors.Errorf("UTF-16 data has odd length %d", len(b))
	}
	decoded, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(err, "decode UTF-16")
	}
	return string(decoded), nil
}

// DecodeUTF16LEUntilNul converts a little endian UTF-16 byte sequence to a
// string, stopping at the first NUL code unit. Kernel supplied names are NUL
// terminated and often padded past the terminator.
func DecodeUTF16LEUntilNul(b []byte) (string, error) {
	end := len(b) - len(b)%2
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			end = i
			break
		}
	}
	return DecodeUTF16LE(b[:end])
}

// EncodeUTF16LE converts a string to little endian UTF-16 bytes with no
// terminator.
func EncodeUTF16LE(s string) []byte {
	encoded, err := utf16LE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil
	}
	return encoded
}
