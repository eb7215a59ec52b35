package mdict

import "sort"

// keywordTable is the express-mode in-memory index: every keyword entry's
// (hash, ordinal) packed into a sorted uint64 array plus a parallel slice of
// the entries themselves, so a lookup is a binary search over hashes
// followed by a linear scan of same-hash collisions re-verified against the
// real key text (spec.md §4.6, §9).
type keywordTable struct {
	packed  []uint64 // (hash<<32 | ordinal), sorted ascending
	entries []keywordEntry
}

func buildKeywordTable(entries []keywordEntry, adapt func(string) string) *keywordTable {
	t := &keywordTable{
		packed:  make([]uint64, len(entries)),
		entries: entries,
	}
	for i, e := range entries {
		h := murmurHash3X86_32([]byte(adapt(e.key)), keywordHashSeed)
		t.packed[i] = uint64(h)<<32 | uint64(uint32(i))
	}
	sort.Slice(t.packed, func(a, b int) bool { return t.packed[a] < t.packed[b] })
	return t
}

// find returns every entry whose adapted key equals adaptedKey, re-verifying
// the true key text against hash collisions rather than trusting the hash
// alone (spec.md §9's resolved collision-handling question).
func (t *keywordTable) find(adaptedKey string, adapt func(string) string) []keywordEntry {
	target := uint64(murmurHash3X86_32([]byte(adaptedKey), keywordHashSeed)) << 32

	lo := sort.Search(len(t.packed), func(i int) bool { return t.packed[i]>>32 >= target>>32 })

	var matches []keywordEntry
	for i := lo; i < len(t.packed) && t.packed[i]>>32 == target>>32; i++ {
		ordinal := uint32(t.packed[i])
		e := t.entries[ordinal]
		if adapt(e.key) == adaptedKey {
			matches = append(matches, e)
		}
	}
	return matches
}
