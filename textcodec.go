package mdict

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies the text codec declared by the dictionary's Encoding attribute.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF16
	EncodingBig5
	EncodingGB18030
)

// bytesPerUnit is 2 for UTF-16, 1 for every single-byte-unit encoding this
// package supports (GB18030/Big5 are decoded as whole byte runs, not per-unit,
// but their NUL-termination scanning still proceeds one byte at a time).
func (e Encoding) bytesPerUnit() int {
	if e == EncodingUTF16 {
		return 2
	}
	return 1
}

var (
	utf16LE  = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	gb18030D = simplifiedchinese.GB18030
	big5D    = traditionalchinese.Big5
)

func decodeUTF16LE(b []byte) (string, error) {
	out, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode utf-16le: %w", err)
	}
	return string(out), nil
}

// decodeText decodes raw bytes according to enc, falling back to a raw string
// cast if the codec rejects the input rather than failing the whole lookup.
func decodeText(enc Encoding, b []byte) string {
	switch enc {
	case EncodingUTF16:
		if s, err := decodeUTF16LE(b); err == nil {
			return s
		}
		return string(b)
	case EncodingGB18030:
		if out, err := gb18030D.NewDecoder().Bytes(b); err == nil {
			return string(out)
		}
		return string(b)
	case EncodingBig5:
		if out, err := big5D.NewDecoder().Bytes(b); err == nil {
			return string(out)
		}
		return string(b)
	default:
		return string(b)
	}
}

func beU8(b []byte) uint8   { return b[0] }
func beU16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func beU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func beU64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
