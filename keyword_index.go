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

import "fmt"

// keywordBlockRef describes one compressed keyword block: its span of keys
// (first/last, for binary search), its location in the decompressed keyword
// section, and its ordinal among all keyword blocks.
type keywordBlockRef struct {
	ordinal      int
	numEntries   int64
	firstKey     string
	lastKey      string
	compSize     int64
	decompSize   int64
	fileOffset   int64 // absolute offset of this block's 8-byte preamble within the file
	decompOffset int64 // cumulative decompressed-bytes offset, for mapping into the flat keyword stream
}

// keywordEntry is one (recordOffset, headWord) pair decoded out of a keyword
// block. size is the byte length of an mdd resource, derived from the next
// entry's recordOffset (spec.md §4.6: "size absent when ordinal is the
// last"); -1 means absent, i.e. read to the end of the containing record
// block. mdx lookups ignore size entirely since text is NUL-terminated.
type keywordEntry struct {
	recordOffset int64
	key          string
	blockOrdinal int
	size         int64
}

// keywordDirectory is the decoded keyword summary + keyword-index section of
// an mdx/mdd file: the ordered list of block references plus, lazily, the
// decoded entries of each block (spec.md §4.4).
type keywordDirectory struct {
	numBlocks      int64
	numEntries     int64
	decompSize     int64 // total decompressed size of the key-block-info section
	compSize       int64
	blocks         []keywordBlockRef
	keyBlocksStart int64 // file offset where the first keyword block begins
}

// readKeywordSummary reads the fixed-format summary record preceding the
// keyword-index block: four (v1) or five (v2) version-aware numbers, then a checksum.
func readKeywordSummary(src *blockSource, offset int64, cfg *dictConfig) (*keywordDirectory, int64, error) {
	// Five numbers (numBlocks, numEntries, keyIndexDecompLen v2-only, keyIndexCompLen, keyBlocksTotalSize) plus checksum.
	width := cfg.numberWidth
	fieldCount := 4
	if cfg.v2 {
		fieldCount = 5
	}
	raw, err := src.read(offset, int64(fieldCount*width)+4)
	if err != nil {
		return nil, 0, newErr(ErrKindIO, "read-keyword-summary", src.path, err)
	}
	s := newScanner(raw, cfg)

	dir := &keywordDirectory{}
	dir.numBlocks, err = s.readNum()
	if err != nil {
		return nil, 0, err
	}
	dir.numEntries, err = s.readNum()
	if err != nil {
		return nil, 0, err
	}
	if cfg.v2 {
		if _, err := s.readNum(); err != nil { // decompressed size of key-block-info, unused directly
			return nil, 0, err
		}
	}
	dir.compSize, err = s.readNum()
	if err != nil {
		return nil, 0, err
	}
	totalKeyBlockSize, err := s.readNum()
	if err != nil {
		return nil, 0, err
	}
	_ = totalKeyBlockSize
	if err := s.checksum(); err != nil {
		return nil, 0, err
	}

	return dir, offset + int64(s.pos), nil
}

// readKeywordIndex decompresses the keyword-index block at indexOffset and
// decodes each block's (numEntries, firstKey, lastKey, compSize, decompSize)
// tuple, populating fileOffset/decompOffset as running totals (spec.md §4.4,
// grounded on the teacher's readKeyBlockInfo/decodeKeyBlockInfo pair).
func readKeywordIndex(src *blockSource, dir *keywordDirectory, indexOffset int64, cfg *dictConfig) (int64, error) {
	raw, err := src.read(indexOffset, dir.compSize)
	if err != nil {
		return 0, newErr(ErrKindIO, "read-keyword-index", src.path, err)
	}
	decrypt := cfg.encryptFlags&encryptKeyIdx != 0
	sc, err := readBlock(raw, int(dir.compSize), 0, decrypt)
	if err != nil {
		return 0, newErr(ErrKindMalformedBlock, "decode-keyword-index", src.path, err)
	}
	sc.cfg = cfg

	dir.blocks = make([]keywordBlockRef, 0, dir.numBlocks)
	var decompOffset, fileOffset int64
	fileOffset = indexOffset + dir.compSize // first keyword block follows the index section

	for i := int64(0); i < dir.numBlocks; i++ {
		numEntries, err := sc.readNum()
		if err != nil {
			return 0, fmt.Errorf("keyword block %d: num entries: %w", i, err)
		}
		// Index words are size-prefixed in both versions (spec.md §4.4/§6:
		// short + sized_text for first_word and last_word); only the keyword
		// *block* entries decoded below are NUL-terminated.
		firstLen, err := sc.readShort()
		if err != nil {
			return 0, err
		}
		firstKey, err := sc.readTextSized(firstLen)
		if err != nil {
			return 0, err
		}
		lastLen, err := sc.readShort()
		if err != nil {
			return 0, err
		}
		lastKey, err := sc.readTextSized(lastLen)
		if err != nil {
			return 0, err
		}
		compSize, err := sc.readNum()
		if err != nil {
			return 0, err
		}
		decompSize, err := sc.readNum()
		if err != nil {
			return 0, err
		}

		dir.blocks = append(dir.blocks, keywordBlockRef{
			ordinal:      int(i),
			numEntries:   numEntries,
			firstKey:     firstKey,
			lastKey:      lastKey,
			compSize:     compSize,
			decompSize:   decompSize,
			fileOffset:   fileOffset,
			decompOffset: decompOffset,
		})
		fileOffset += compSize
		decompOffset += decompSize
	}

	return fileOffset, nil
}

// decodeKeywordBlock decompresses one keyword block and splits it into its
// (recordOffset, key) entries, each NUL-terminated in the decompressed
// stream. Individual keyword blocks are never separately encrypted; only
// the keyword-index meta block they are described by is (spec.md's
// Encrypted bit 1).
func decodeKeywordBlock(src *blockSource, ref keywordBlockRef, cfg *dictConfig) ([]keywordEntry, error) {
	raw, err := src.read(ref.fileOffset, ref.compSize)
	if err != nil {
		return nil, newErr(ErrKindIO, "read-keyword-block", src.path, err)
	}
	sc, err := readBlock(raw, int(ref.compSize), int(ref.decompSize), false)
	if err != nil {
		return nil, newErr(ErrKindMalformedBlock, "decode-keyword-block", src.path, err)
	}
	sc.cfg = cfg

	entries := make([]keywordEntry, 0, ref.numEntries)
	for i := int64(0); i < ref.numEntries; i++ {
		offset, err := sc.readNum()
		if err != nil {
			return nil, newErr(ErrKindMalformedBlock, "decode-keyword-block", src.path, fmt.Errorf("keyword entry %d in block %d: %w", i, ref.ordinal, err))
		}
		key, err := sc.readText()
		if err != nil {
			return nil, newErr(ErrKindMalformedBlock, "decode-keyword-block", src.path, fmt.Errorf("keyword entry %d in block %d: %w", i, ref.ordinal, err))
		}
		entries = append(entries, keywordEntry{recordOffset: offset, key: key, blockOrdinal: ref.ordinal, size: -1})
	}
	assignLocalSizes(entries)
	return entries, nil
}

// assignLocalSizes fills in size for every entry but the last by diffing
// consecutive recordOffsets within entries. Used directly by scan-mode
// lookups, which only ever decode one block at a time; express mode
// overwrites these with globally-correct sizes once every block is loaded
// (see buildIndex).
func assignLocalSizes(entries []keywordEntry) {
	for i := 0; i < len(entries)-1; i++ {
		entries[i].size = entries[i+1].recordOffset - entries[i].recordOffset
	}
}

// findBlock returns the ordinal of the keyword block whose [firstKey,lastKey]
// span could contain adaptedKey, or -1 if none does. Binary search over
// dir.blocks, which are sorted by key since the source dictionary is sorted.
// firstKey/lastKey are stored exactly as decoded off disk, so they must be
// run through adapt before comparing against the already-adapted query.
func (d *keywordDirectory) findBlock(adaptedKey string, adapt func(string) string) int {
	lo, hi := 0, len(d.blocks)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		b := d.blocks[mid]
		switch {
		case adaptedKey < adapt(b.firstKey):
			hi = mid - 1
		case adaptedKey > adapt(b.lastKey):
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}
