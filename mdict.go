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

// Package mdict reads MDict-format dictionary (.mdx) and resource (.mdd)
// files: locating, decompressing, and optionally decrypting keyword and
// record blocks to resolve a lookup key to its definition or resource bytes.
package mdict

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OpenOptions configures how a dictionary file is opened. The zero value is
// scan mode, no resolved-definition cache, and non-strict number decoding.
type OpenOptions struct {
	// Express builds the full in-memory keyword hash table up front, trading
	// Open latency and memory for O(1)-ish Lookup instead of scan mode's
	// binary-search-plus-linear-scan.
	Express bool

	// Strict rejects v2 numbers whose high 32 bits are non-zero instead of
	// silently truncating them. It has no other effect: decompressed-size
	// mismatches are errors in either mode.
	Strict bool

	// Cache, if non-nil, is used as a resolved-definition cache keyed by the
	// dictionary's fingerprint and adapted lookup key.
	Cache *DefinitionCacheOptions
}

// DefinitionCacheOptions configures the optional Redis-backed
// resolved-definition cache (see definitionCache).
type DefinitionCacheOptions struct {
	Client      *redis.Client
	Fingerprint string
}

// Mdict is a single opened dictionary file (.mdx or .mdd). It is safe for
// concurrent use by multiple goroutines: the single-slot record block cache
// is mutex-guarded, and every other field is read-only after Open returns.
type Mdict struct {
	path  string
	isMDD bool
	cfg   *dictConfig
	hdr   *headerInfo

	src      *blockSource
	closeFn  func() error
	keywords *keywordDirectory
	records  *recordDirectory
	table    *keywordTable // non-nil only in express mode

	blockCache *recordBlockCache
	defCache   *definitionCache
}

// Open reads and indexes the dictionary or resource file at path. The
// returned *Mdict must be closed with Close when no longer needed.
func Open(path string, opts OpenOptions) (*Mdict, error) {
	isMDD := isMDDPath(path)

	src, closeFn, err := openBlockSource(path)
	if err != nil {
		return nil, err
	}

	hdr, err := readHeader(src, isMDD, opts.Strict)
	if err != nil {
		closeFn()
		return nil, err
	}

	m := &Mdict{
		path:       path,
		isMDD:      isMDD,
		cfg:        hdr.cfg,
		hdr:        hdr,
		src:        src,
		closeFn:    closeFn,
		blockCache: &recordBlockCache{},
	}

	if err := m.buildIndex(hdr.headerByteLen, opts); err != nil {
		closeFn()
		return nil, err
	}

	return m, nil
}

func isMDDPath(path string) bool {
	n := len(path)
	return n >= 4 && (path[n-4:] == ".mdd" || path[n-4:] == ".MDD")
}

// buildIndex reads the keyword summary/index and record summary/index
// sections that follow the header, and builds the express-mode hash table
// when requested (spec.md §4.4, §4.6, §4.7).
func (m *Mdict) buildIndex(afterHeader int64, opts OpenOptions) error {
	dir, afterKwSummary, err := readKeywordSummary(m.src, afterHeader, m.cfg)
	if err != nil {
		return newErr(ErrKindMalformedBlock, "build-index", m.path, err)
	}
	m.keywords = dir

	afterKwIndex, err := readKeywordIndex(m.src, dir, afterKwSummary, m.cfg)
	if err != nil {
		return newErr(ErrKindMalformedBlock, "build-index", m.path, err)
	}

	recDir, afterRecSummary, err := readRecordSummary(m.src, afterKwIndex, m.cfg)
	if err != nil {
		return newErr(ErrKindMalformedBlock, "build-index", m.path, err)
	}
	m.records = recDir

	if _, err := readRecordIndex(m.src, recDir, afterRecSummary, m.cfg); err != nil {
		return newErr(ErrKindMalformedBlock, "build-index", m.path, err)
	}

	if opts.Express {
		var all []keywordEntry
		for _, ref := range dir.blocks {
			entries, err := decodeKeywordBlock(m.src, ref, m.cfg)
			if err != nil {
				return newErr(ErrKindMalformedBlock, "build-express-index", m.path, err)
			}
			all = append(all, entries...)
		}
		// decodeKeywordBlock already assigned per-block-local sizes; redo
		// globally across every block's entries in file order, since an mdd
		// resource's size is defined against the next ordinal overall, not
		// just the next entry in the same keyword block (spec.md §4.6).
		assignLocalSizes(all)
		m.table = buildKeywordTable(all, m.adapt)
	}

	if opts.Cache != nil {
		m.defCache = newDefinitionCache(opts.Cache.Client, opts.Cache.Fingerprint)
	}

	log.Infof("opened %s: %d keyword blocks, %d record blocks, express=%v", m.path, dir.numBlocks, recDir.numBlocks, opts.Express)
	return nil
}

// Close releases the underlying file handle.
func (m *Mdict) Close() error {
	return m.closeFn()
}

// Lookup resolves key to its definition (mdx) or resource bytes (mdd),
// following @@@LINK= redirects for mdx lookups. It returns ErrWordNotFound
// if no entry matches.
func (m *Mdict) Lookup(key string) (string, error) {
	var adapted string
	if m.isMDD {
		adapted = adaptResourcePath(key)
	} else {
		adapted = adaptKey(m.cfg, key)
	}

	if !m.isMDD && m.defCache != nil {
		if cached, ok := m.defCache.get(context.Background(), adapted); ok {
			return cached, nil
		}
	}

	entries, err := m.matchEntries(adapted)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", newErr(ErrKindNotFound, "lookup", m.path, ErrWordNotFound)
	}

	def, err := m.fetchDefinition(entries[0])
	if err != nil {
		return "", err
	}
	if m.isMDD {
		return def, nil
	}
	resolved, err := m.resolveLink(adapted, def)
	if err != nil {
		return "", err
	}
	if m.defCache != nil {
		m.defCache.put(context.Background(), adapted, resolved)
	}
	return resolved, nil
}

// Search returns up to 64 consecutive keys in dictionary order, starting at
// the first key whose adapted form is >= prefix. Later keys in the window
// need not share the prefix.
func (m *Mdict) Search(prefix string) ([]string, error) {
	return m.search(adaptKey(m.cfg, prefix))
}

// Title is the dictionary's declared title (the header's Title attribute).
func (m *Mdict) Title() string { return m.hdr.title }

// Description is the dictionary's declared description.
func (m *Mdict) Description() string { return m.hdr.description }

// EngineVersion is the declared GeneratedByEngineVersion string.
func (m *Mdict) EngineVersion() string { return m.hdr.engineVersion }

// IsMDD reports whether this file is a resource (.mdd) container rather
// than a text dictionary (.mdx).
func (m *Mdict) IsMDD() bool { return m.isMDD }

// KeywordCount is the total number of keyword entries across all blocks.
func (m *Mdict) KeywordCount() int64 { return m.keywords.numEntries }

// Attributes exposes the raw parsed header attribute map.
func (m *Mdict) Attributes() Attributes { return m.hdr.attrs }

// allKeys returns every keyword (mdx) or resource path (mdd) in the
// dictionary. In express mode this is a slice of the already-decoded
// entries; otherwise every keyword block is decoded on the spot.
func (m *Mdict) allKeys() ([]string, error) {
	if m.table != nil {
		keys := make([]string, len(m.table.entries))
		for i, e := range m.table.entries {
			keys[i] = e.key
		}
		return keys, nil
	}
	var keys []string
	for _, ref := range m.keywords.blocks {
		entries, err := decodeKeywordBlock(m.src, ref, m.cfg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			keys = append(keys, e.key)
		}
	}
	return keys, nil
}

func (m *Mdict) String() string {
	return fmt.Sprintf("Mdict{path=%s title=%q entries=%d}", m.path, m.hdr.title, m.keywords.numEntries)
}
