package mdict

import "fmt"

// recordBlockRef locates one compressed record block: its span of
// decompressed-offset space (so a keyword's recordOffset can be mapped to
// it by range containment), and its position in the file.
type recordBlockRef struct {
	ordinal      int
	fileOffset   int64
	compSize     int64
	decompOffset int64
	decompSize   int64
}

func (r recordBlockRef) contains(decompOffset int64) bool {
	return decompOffset >= r.decompOffset && decompOffset < r.decompOffset+r.decompSize
}

// recordDirectory is the decoded record summary + record-index section:
// the ordered, non-overlapping list of record-block spans a keyword's
// recordOffset is resolved against by binary search (spec.md §4.7, grounded
// on the teacher's record-block range tree).
type recordDirectory struct {
	numBlocks    int64
	numEntries   int64
	indexSize    int64
	totalSize    int64
	blocks       []recordBlockRef
}

func readRecordSummary(src *blockSource, offset int64, cfg *dictConfig) (*recordDirectory, int64, error) {
	width := cfg.numberWidth
	raw, err := src.read(offset, int64(4*width))
	if err != nil {
		return nil, 0, newErr(ErrKindIO, "read-record-summary", src.path, err)
	}
	s := newScanner(raw, cfg)
	dir := &recordDirectory{}
	if dir.numBlocks, err = s.readNum(); err != nil {
		return nil, 0, err
	}
	if dir.numEntries, err = s.readNum(); err != nil {
		return nil, 0, err
	}
	if dir.indexSize, err = s.readNum(); err != nil {
		return nil, 0, err
	}
	if dir.totalSize, err = s.readNum(); err != nil {
		return nil, 0, err
	}
	return dir, offset + int64(s.pos), nil
}

// readRecordIndex decodes the (compSize, decompSize) pair for each record
// block and derives running fileOffset/decompOffset totals. The record-index
// section itself is never compressed (unlike the keyword index).
func readRecordIndex(src *blockSource, dir *recordDirectory, indexOffset int64, cfg *dictConfig) (int64, error) {
	raw, err := src.read(indexOffset, dir.indexSize)
	if err != nil {
		return 0, newErr(ErrKindIO, "read-record-index", src.path, err)
	}
	s := newScanner(raw, cfg)

	dir.blocks = make([]recordBlockRef, 0, dir.numBlocks)
	fileOffset := indexOffset + dir.indexSize
	var decompOffset int64
	for i := int64(0); i < dir.numBlocks; i++ {
		compSize, err := s.readNum()
		if err != nil {
			return 0, fmt.Errorf("record block %d: comp size: %w", i, err)
		}
		decompSize, err := s.readNum()
		if err != nil {
			return 0, fmt.Errorf("record block %d: decomp size: %w", i, err)
		}
		dir.blocks = append(dir.blocks, recordBlockRef{
			ordinal:      int(i),
			fileOffset:   fileOffset,
			compSize:     compSize,
			decompOffset: decompOffset,
			decompSize:   decompSize,
		})
		fileOffset += compSize
		decompOffset += decompSize
	}
	return fileOffset, nil
}

// find returns the record block whose decompressed-offset span contains
// decompOffset, via binary search over the non-overlapping, ascending spans.
func (d *recordDirectory) find(decompOffset int64) (recordBlockRef, error) {
	lo, hi := 0, len(d.blocks)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		b := d.blocks[mid]
		switch {
		case decompOffset < b.decompOffset:
			hi = mid - 1
		case decompOffset >= b.decompOffset+b.decompSize:
			lo = mid + 1
		default:
			return b, nil
		}
	}
	return recordBlockRef{}, fmt.Errorf("record offset %d not contained in any block", decompOffset)
}
