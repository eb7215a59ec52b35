package mdict

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/adler32"
)

// synthEntry is one (key, definition) pair destined for a single keyword
// block in a synthetic fixture built by buildFixture.
type synthEntry struct {
	key string
	def string
}

// fixtureOpts configures a synthetic mdx/mdd file built for tests. Every
// fixture built here uses compressionNone for both the keyword-index block
// and the record blocks, keeping byte-layout math simple; compression paths
// are exercised by their own narrower tests. When encrypted has bit 1 set,
// buildFixture encrypts the keyword-index payload.
type fixtureOpts struct {
	v2         bool
	encoding   Encoding
	encrypted  int
	foldCase   bool
	stripPunct bool
	isMDD      bool
	blocks     [][]synthEntry // one []synthEntry per keyword block
}

func numWidth(v2 bool) int {
	if v2 {
		return 8
	}
	return 4
}

func shortWidth(v2 bool) int {
	if v2 {
		return 2
	}
	return 1
}

func textTailUnits(v2 bool) int {
	if v2 {
		return 1
	}
	return 0
}

func appendNum(buf *bytes.Buffer, v int64, width int) {
	b := make([]byte, width)
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(v))
	default:
		binary.BigEndian.PutUint64(b, uint64(v))
	}
	buf.Write(b)
}

func appendShort(buf *bytes.Buffer, v int, width int) {
	appendNum(buf, int64(v), width)
}

func encodeUnits(enc Encoding, s string) []byte {
	if enc == EncodingUTF16 {
		out, err := utf16LE.NewEncoder().Bytes([]byte(s))
		if err != nil {
			panic(err)
		}
		return out
	}
	return []byte(s)
}

// appendTextNulTerminated writes s in enc, a NUL terminator, and (v2 only)
// one unit of trailing padding -- what scanner.readText expects.
func appendTextNulTerminated(buf *bytes.Buffer, enc Encoding, v2 bool, s string) {
	buf.Write(encodeUnits(enc, s))
	buf.Write(make([]byte, enc.bytesPerUnit()))
	if v2 {
		buf.Write(make([]byte, enc.bytesPerUnit()))
	}
}

// appendTextSized writes short(unitCount) + sized text + (v2 only) one unit
// of trailing padding -- what scanner.readShort+readTextSized expect.
func appendTextSized(buf *bytes.Buffer, enc Encoding, v2 bool, s string) {
	encoded := encodeUnits(enc, s)
	unitCount := len(encoded) / enc.bytesPerUnit()
	appendShort(buf, unitCount, shortWidth(v2))
	buf.Write(encoded)
	if v2 {
		buf.Write(make([]byte, enc.bytesPerUnit()))
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func encodingAttr(enc Encoding) string {
	switch enc {
	case EncodingUTF16:
		return "UTF-16"
	default:
		return "UTF-8"
	}
}

func buildHeaderBytes(opts fixtureOpts) []byte {
	engineVersion := "1.2"
	if opts.v2 {
		engineVersion = "2.0"
	}
	xml := fmt.Sprintf(
		`<Dictionary GeneratedByEngineVersion="%s" Encrypted="%d" Encoding="%s" Title="Test Dictionary" Description="A synthetic fixture" CreationDate="2024-01-01" KeyCaseSensitive="%s" StripKey="%s"/>`,
		engineVersion, opts.encrypted, encodingAttr(opts.encoding), yesNo(!opts.foldCase), yesNo(opts.stripPunct))

	headerText, err := utf16LE.NewEncoder().Bytes([]byte(xml))
	if err != nil {
		panic(err)
	}
	headerText = append(headerText, 0, 0) // NUL terminator unit

	var out bytes.Buffer
	appendNum(&out, int64(len(headerText)), 4)
	out.Write(headerText)
	appendNum(&out, int64(adler32.Checksum(headerText)), 4)
	return out.Bytes()
}

// buildFixture assembles a complete in-memory mdx/mdd file: header, keyword
// summary/index/blocks, record summary/index/blocks. Every keyword block's
// entries get one record block each, one entry per definition, laid out in
// the same order as opts.blocks so record offsets line up predictably.
func buildFixture(opts fixtureOpts) []byte {
	width := numWidth(opts.v2)
	var out bytes.Buffer
	out.Write(buildHeaderBytes(opts))

	// --- keyword index (decompressed form) ---
	var kwIndex bytes.Buffer
	type blockPlan struct {
		numEntries int
		firstKey   string
		lastKey    string
		payload    []byte
	}
	var plans []blockPlan
	var recordOffset int64

	// Lay out definitions first so we know each entry's cumulative record
	// offset before serializing the keyword blocks that reference them.
	type placedEntry struct {
		key    string
		offset int64
	}
	var placedByBlock [][]placedEntry
	var recordPayloads [][]byte // one []byte per record block, one record block per keyword block

	for _, block := range opts.blocks {
		var placed []placedEntry
		var recBuf bytes.Buffer
		for _, e := range block {
			placed = append(placed, placedEntry{key: e.key, offset: recordOffset})
			if opts.isMDD {
				recBuf.WriteString(e.def)
			} else {
				recBuf.Write(encodeUnits(opts.encoding, e.def))
				recBuf.Write(make([]byte, opts.encoding.bytesPerUnit()))
			}
			recordOffset = int64(recBuf.Len())
		}
		placedByBlock = append(placedByBlock, placed)
		recordPayloads = append(recordPayloads, recBuf.Bytes())
		recordOffset = 0
	}
	// Recompute cumulative offsets across the whole record stream, not per-block.
	var cum int64
	for bi := range placedByBlock {
		for i := range placedByBlock[bi] {
			placedByBlock[bi][i].offset += cum
		}
		cum += int64(len(recordPayloads[bi]))
	}

	for bi, block := range opts.blocks {
		var kwBlock bytes.Buffer
		for i, e := range block {
			appendNum(&kwBlock, placedByBlock[bi][i].offset, width)
			appendTextNulTerminated(&kwBlock, opts.encoding, opts.v2, e.key)
		}
		first, last := block[0].key, block[len(block)-1].key
		plans = append(plans, blockPlan{numEntries: len(block), firstKey: first, lastKey: last, payload: kwBlock.Bytes()})
	}

	for _, p := range plans {
		appendNum(&kwIndex, int64(p.numEntries), width)
		// Index words are size-prefixed in both versions (spec.md §4.4/§6);
		// only the keyword block entries below are NUL-terminated.
		appendTextSized(&kwIndex, opts.encoding, opts.v2, p.firstKey)
		appendTextSized(&kwIndex, opts.encoding, opts.v2, p.lastKey)
		appendNum(&kwIndex, int64(8+len(p.payload)), width) // comp size includes the 8-byte block preamble
		appendNum(&kwIndex, int64(len(p.payload)), width)   // decomp size is payload only
	}

	// keyword-index block: 8-byte preamble (tag=0 none, 4-byte checksum field that also
	// keys the encryption) + payload, encrypted when encrypted&0x02 is set
	kwIndexPayload := kwIndex.Bytes()
	checksumField := []byte{0xAB, 0xCD, 0xEF, 0x01}
	if opts.encrypted&0x02 != 0 {
		kwIndexPayload = referenceEncrypt(kwIndexPayload, blockPasskey(checksumField))
	}
	kwIndexBlock := make([]byte, 8+len(kwIndexPayload))
	kwIndexBlock[0] = 0 // compressionNone
	copy(kwIndexBlock[4:8], checksumField)
	copy(kwIndexBlock[8:], kwIndexPayload)

	// --- keyword summary ---
	var totalEntries int64
	for _, b := range opts.blocks {
		totalEntries += int64(len(b))
	}
	var summary bytes.Buffer
	appendNum(&summary, int64(len(opts.blocks)), width)
	appendNum(&summary, totalEntries, width)
	if opts.v2 {
		appendNum(&summary, int64(kwIndex.Len()), width) // key_index_decomp_len
	}
	appendNum(&summary, int64(len(kwIndexBlock)), width) // key_index_comp_len (includes 8-byte preamble)
	var totalKeyBlockLen int64
	for _, p := range plans {
		totalKeyBlockLen += int64(8 + len(p.payload))
	}
	appendNum(&summary, totalKeyBlockLen, width)
	appendNum(&summary, 0, 4) // checksum, unused

	out.Write(summary.Bytes())
	out.Write(kwIndexBlock)

	// keyword blocks, each its own tag=0 block
	for _, p := range plans {
		block := make([]byte, 8+len(p.payload))
		block[0] = 0
		copy(block[8:], p.payload)
		out.Write(block)
	}

	// --- record summary + index + blocks ---
	var recSummary bytes.Buffer
	appendNum(&recSummary, int64(len(recordPayloads)), width)
	appendNum(&recSummary, totalEntries, width)
	var recIndex bytes.Buffer
	var totalRecBlocksLen int64
	for _, payload := range recordPayloads {
		appendNum(&recIndex, int64(8+len(payload)), width)
		appendNum(&recIndex, int64(len(payload)), width)
		totalRecBlocksLen += int64(8 + len(payload))
	}
	appendNum(&recSummary, int64(recIndex.Len()), width)
	appendNum(&recSummary, totalRecBlocksLen, width)

	out.Write(recSummary.Bytes())
	out.Write(recIndex.Bytes())

	for _, payload := range recordPayloads {
		block := make([]byte, 8+len(payload))
		block[0] = 0
		copy(block[8:], payload)
		out.Write(block)
	}

	return out.Bytes()
}

// zlibCompress is a small helper for tests exercising the deflate codec path.
func zlibCompress(b []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
