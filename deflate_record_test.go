package mdict

import "bytes"

// buildDeflateFixture assembles a minimal v1 UTF-8 mdx file with exactly one
// keyword and one record block, where the record block is deflate-tagged
// (spec.md's compression tag 2, a zlib-wrapped deflate stream) instead of
// the compressionNone blocks every other synthetic fixture uses. It mirrors
// buildFixture's layout for the sections it shares (header, keyword summary
// /index/block) but needs its own record-block assembly to exercise the
// deflate codec end to end.
func buildDeflateFixture(key, def string) []byte {
	opts := fixtureOpts{v2: false, encoding: EncodingUTF8}
	width := numWidth(opts.v2)

	var out bytes.Buffer
	out.Write(buildHeaderBytes(opts))

	var recPlain bytes.Buffer
	recPlain.Write(encodeUnits(opts.encoding, def))
	recPlain.Write(make([]byte, opts.encoding.bytesPerUnit()))
	recCompressed := zlibCompress(recPlain.Bytes())

	// The keyword block itself: one (recordOffset, key) entry.
	var kwBlock bytes.Buffer
	appendNum(&kwBlock, 0, width) // single entry, record offset 0
	appendTextNulTerminated(&kwBlock, opts.encoding, opts.v2, key)
	kwBlockPayload := kwBlock.Bytes()

	// The keyword-index meta block: the (numEntries, firstKey, lastKey,
	// compSize, decompSize) tuple describing that one keyword block. Index
	// words are size-prefixed in both versions (spec.md §4.4/§6); only the
	// keyword block entries above are NUL-terminated.
	var kwIndex bytes.Buffer
	appendNum(&kwIndex, 1, width)
	appendTextSized(&kwIndex, opts.encoding, opts.v2, key)
	appendTextSized(&kwIndex, opts.encoding, opts.v2, key)
	appendNum(&kwIndex, int64(8+len(kwBlockPayload)), width)
	appendNum(&kwIndex, int64(len(kwBlockPayload)), width)
	kwIndexPayload := kwIndex.Bytes()
	kwIndexBlock := make([]byte, 8+len(kwIndexPayload))
	copy(kwIndexBlock[8:], kwIndexPayload)

	var summary bytes.Buffer
	appendNum(&summary, 1, width)                        // numBlocks
	appendNum(&summary, 1, width)                        // numEntries
	appendNum(&summary, int64(len(kwIndexBlock)), width) // key_index_comp_len
	appendNum(&summary, int64(8+len(kwBlockPayload)), width)
	appendNum(&summary, 0, 4) // checksum, unused

	out.Write(summary.Bytes())
	out.Write(kwIndexBlock)

	block := make([]byte, 8+len(kwBlockPayload))
	copy(block[8:], kwBlockPayload)
	out.Write(block)

	var recSummary bytes.Buffer
	appendNum(&recSummary, 1, width) // numRecordBlocks
	appendNum(&recSummary, 1, width) // numEntries

	var recIndex bytes.Buffer
	appendNum(&recIndex, int64(8+len(recCompressed)), width) // compSize (includes preamble)
	appendNum(&recIndex, int64(recPlain.Len()), width)       // decompSize

	appendNum(&recSummary, int64(recIndex.Len()), width)
	appendNum(&recSummary, int64(8+len(recCompressed)), width)

	out.Write(recSummary.Bytes())
	out.Write(recIndex.Bytes())

	recBlock := make([]byte, 8+len(recCompressed))
	recBlock[0] = byte(compressionDeflate)
	copy(recBlock[8:], recCompressed)
	out.Write(recBlock)

	return out.Bytes()
}
