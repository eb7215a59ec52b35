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
	ripemd128 "github.com/c0mm4nd/go-ripemd"
)

// passkeyTail is the fixed second half of the 8-byte passkey mdxDecrypt
// derives its RIPEMD-128 key from: 4 bytes of block checksum followed by
// this literal tail.
var passkeyTail = [4]byte{0x95, 0x36, 0x00, 0x00}

func ripemd128Sum(data []byte) []byte {
	h := ripemd128.New128()
	h.Write(data)
	return h.Sum(nil)
}

// blockPasskey builds the 8-byte passkey for a block given its 4-byte
// checksum field (the second 4 bytes of the block's 8-byte preamble).
func blockPasskey(checksum []byte) []byte {
	key := make([]byte, 8)
	copy(key[:4], checksum)
	copy(key[4:], passkeyTail[:])
	return key
}

// mdxDecrypt reverses the keyword-index rotation cipher described in the
// format: a RIPEMD-128 digest of an 8-byte passkey is nibble-swapped and
// XORed against a running state seeded from the previous ciphertext byte.
// The forward transform is not its own inverse (the running state tracks
// ciphertext, not plaintext), so this package only ever decrypts.
func mdxDecrypt(data []byte, key []byte) []byte {
	digest := ripemd128Sum(key)
	out := make([]byte, len(data))
	prev := byte(0x36)
	for i, b := range data {
		swapped := ((b >> 4) | (b << 4)) & 0xFF
		out[i] = swapped ^ prev ^ byte(i&0xFF) ^ digest[i%len(digest)]
		prev = b
	}
	return out
}
