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
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	lzo "github.com/rasky/go-lzo"
)

// compressionTag identifies the codec used for a block, per the 4-byte tag
// that precedes every key/record block on disk.
type compressionTag uint8

const (
	compressionNone    compressionTag = 0
	compressionLZO     compressionTag = 1
	compressionDeflate compressionTag = 2
)

// inflate decompresses a zlib-wrapped (RFC 1950) deflate stream. MDict's
// "deflate" blocks are written by Python's zlib module, which emits the
// 2-byte zlib header and trailing checksum around the raw deflate stream, so
// compress/zlib -- not compress/flate -- is the matching stdlib codec.
func inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return out, nil
}

// lzoDecompress decompresses an LZO1x stream given its expected decompressed length.
func lzoDecompress(compressed []byte, expectedLen int) ([]byte, error) {
	out, err := lzo.Decompress1X(bytes.NewReader(compressed), 0, expectedLen)
	if err != nil {
		return nil, fmt.Errorf("lzo1x: %w", err)
	}
	return out, nil
}

// decompressBlock dispatches on tag and validates the result length when
// decompSize is known (>0). decompSize of 0 disables that check: v1 keyword
// index blocks don't declare their decompressed size up front.
func decompressBlock(tag compressionTag, payload []byte, decompSize int) ([]byte, error) {
	switch tag {
	case compressionNone:
		return checkDecompLen(payload, decompSize)
	case compressionLZO:
		out, err := lzoDecompress(payload, decompSize)
		if err != nil {
			return nil, err
		}
		return checkDecompLen(out, decompSize)
	case compressionDeflate:
		out, err := inflate(payload)
		if err != nil {
			return nil, err
		}
		return checkDecompLen(out, decompSize)
	default:
		return nil, fmt.Errorf("unknown compression tag %d", tag)
	}
}

func checkDecompLen(out []byte, want int) ([]byte, error) {
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("decompressed size mismatch: want %d, got %d", want, len(out))
	}
	return out, nil
}
