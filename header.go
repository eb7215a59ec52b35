//
// Copyright (C) 2023 Quan Chen <chenquan_act@163.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package mdict

import (
	"encoding/xml"
	"fmt"
	"hash/adler32"
	"strconv"
	"strings"
)

const maxHeaderLen = 16 << 20 // 16 MiB, per spec.md §4.3's "length is absurd" guard.

// EncryptFlags mirrors the Encrypted attribute's bit layout: bit 0 is header
// encryption (unsupported, fails Open), bit 1 is keyword-index encryption.
type EncryptFlags int

const (
	encryptHeader EncryptFlags = 1 << 0
	encryptKeyIdx EncryptFlags = 1 << 1
)

// Attributes is the string-to-string map parsed out of the XML header. It is
// populated once during Open and is immutable thereafter.
type Attributes map[string]string

type rawHeaderXML struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

func parseHeaderXML(xmlText string) (Attributes, error) {
	var raw rawHeaderXML
	if err := xml.Unmarshal([]byte(xmlText), &raw); err != nil {
		return nil, fmt.Errorf("parse header xml: %w", err)
	}
	if raw.XMLName.Local != "Dictionary" && raw.XMLName.Local != "Library_Data" {
		return nil, fmt.Errorf("header xml root is %q, want Dictionary or Library_Data", raw.XMLName.Local)
	}
	attrs := make(Attributes, len(raw.Attrs))
	for _, a := range raw.Attrs {
		attrs[a.Name.Local] = a.Value
	}
	return attrs, nil
}

// dictConfig is the derived, version/encoding-dependent configuration spec.md
// §3 describes, computed once from Attributes and then shared read-only by
// every downstream component.
type dictConfig struct {
	v2           bool
	encoding     Encoding
	numberWidth  int // 4 (v1) or 8 (v2); only the low 32 bits of a v2 number are significant.
	shortWidth   int // 1 (v1) or 2 (v2)
	textTail     int // code units of trailing padding after read_text in v2; 0 in v1
	encryptFlags EncryptFlags
	foldCase     bool // !KeyCaseSensitive
	stripPunct   bool // StripKey
	strict       bool // reject numbers whose high 32 bits (v2) are non-zero, instead of truncating
}

func (c *dictConfig) bytesPerUnit() int { return c.encoding.bytesPerUnit() }

// headerInfo is the decoded form of the dictionary's leading header block.
type headerInfo struct {
	attrs           Attributes
	cfg             *dictConfig
	title           string
	description     string
	creationDate    string
	engineVersion   string
	headerByteLen   int64 // bytes consumed by head+header+checksum, i.e. where the keyword summary begins
}

// readHeader reads and parses the file header starting at offset 0:
// a u32 length, that many bytes of UTF-16LE XML (NUL-terminated), then a u32
// checksum. The checksum is computed and logged on mismatch but never fails
// the open, per spec.md §7's non-goal on integrity verification.
func readHeader(src *blockSource, isMDD bool, strict bool) (*headerInfo, error) {
	lenBuf, err := src.read(0, 4)
	if err != nil {
		return nil, newErr(ErrKindIO, "read-header-len", src.path, err)
	}
	headerLen := beU32(lenBuf)
	if headerLen == 0 || int64(headerLen) > maxHeaderLen {
		return nil, newErr(ErrKindBadHeader, "read-header", src.path, fmt.Errorf("implausible header length %d", headerLen))
	}

	headerBytes, err := src.read(4, int64(headerLen))
	if err != nil {
		return nil, newErr(ErrKindIO, "read-header", src.path, err)
	}

	checksumBuf, err := src.read(4+int64(headerLen), 4)
	if err != nil {
		return nil, newErr(ErrKindIO, "read-header-checksum", src.path, err)
	}
	declaredChecksum := beU32(checksumBuf)
	actualChecksum := adler32.Checksum(headerBytes)
	if declaredChecksum != actualChecksum {
		log.Warningf("header checksum mismatch for %s: declared %d, computed %d (ignored, not validated)", src.path, declaredChecksum, actualChecksum)
	}

	headerText, err := decodeUTF16LE(headerBytes)
	if err != nil {
		return nil, newErr(ErrKindBadHeader, "decode-header", src.path, err)
	}
	headerText = strings.TrimRight(headerText, "\x00")
	headerText = strings.Replace(headerText, "Library_Data", "Dictionary", 1)

	attrs, err := parseHeaderXML(headerText)
	if err != nil {
		return nil, newErr(ErrKindBadHeader, "parse-header", src.path, err)
	}

	cfg, err := deriveConfig(attrs, isMDD, strict)
	if err != nil {
		return nil, newErr(ErrKindBadHeader, "derive-config", src.path, err)
	}
	if cfg.encryptFlags&encryptHeader != 0 {
		return nil, newErr(ErrKindDecryption, "open", src.path, fmt.Errorf("header-section encryption requires a registration key"))
	}

	return &headerInfo{
		attrs:         attrs,
		cfg:           cfg,
		title:         attrs["Title"],
		description:   attrs["Description"],
		creationDate:  attrs["CreationDate"],
		engineVersion: attrs["GeneratedByEngineVersion"],
		headerByteLen: 4 + int64(headerLen) + 4,
	}, nil
}

func deriveConfig(attrs Attributes, isMDD bool, strict bool) (*dictConfig, error) {
	cfg := &dictConfig{strict: strict}

	version, err := strconv.ParseFloat(attrs["GeneratedByEngineVersion"], 32)
	if err != nil {
		return nil, fmt.Errorf("invalid GeneratedByEngineVersion %q: %w", attrs["GeneratedByEngineVersion"], err)
	}
	cfg.v2 = version >= 2.0
	if cfg.v2 {
		cfg.numberWidth = 8
		cfg.shortWidth = 2
		cfg.textTail = 1
	} else {
		cfg.numberWidth = 4
		cfg.shortWidth = 1
		cfg.textTail = 0
	}

	switch strings.ToLower(attrs["Encoding"]) {
	case "gbk", "gb2312":
		cfg.encoding = EncodingGB18030
	case "big5":
		cfg.encoding = EncodingBig5
	case "utf-16", "utf16":
		cfg.encoding = EncodingUTF16
	default:
		cfg.encoding = EncodingUTF8
	}
	if isMDD {
		cfg.encoding = EncodingUTF16
	}

	cfg.encryptFlags = parseEncrypted(attrs["Encrypted"])
	cfg.foldCase = !strings.EqualFold(attrs["KeyCaseSensitive"], "yes")
	cfg.stripPunct = strings.EqualFold(attrs["StripKey"], "yes")

	return cfg, nil
}

// parseEncrypted accepts both the modern numeric bitmask form ("2", "3", ...)
// and the legacy boolean form ("Yes"/"No"/"") that older dictionaries carry.
func parseEncrypted(v string) EncryptFlags {
	switch {
	case v == "" || strings.EqualFold(v, "no"):
		return 0
	case strings.EqualFold(v, "yes"):
		return encryptHeader // legacy registration-required dictionaries use the boolean form for bit 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n == 0 {
		return 0
	}
	return EncryptFlags(n)
}
