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
	"fmt"
	"strings"
	"unicode"
)

const (
	maxLinkDepth  = 8
	maxCandidates = 64
	linkPrefix    = "@@@LINK="
)

// adaptKey normalizes a lookup key the same way the dictionary's own keyword
// directory was built: case-folded unless KeyCaseSensitive="Yes", punctuation
// stripped when StripKey="Yes" (spec.md §4.5). mdd resource paths never go
// through this path; see adaptResourcePath.
func adaptKey(cfg *dictConfig, key string) string {
	if cfg.foldCase {
		key = strings.ToLower(key)
	}
	if cfg.stripPunct {
		key = stripPunctuation(key)
	}
	return key
}

func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// adaptResourcePath normalizes an .mdd resource path to the backslash form
// the keyword directory stores: forward slashes become backslashes, and a
// leading separator is guaranteed.
func adaptResourcePath(name string) string {
	name = strings.ReplaceAll(name, "/", "\\")
	if !strings.HasPrefix(name, "\\") {
		name = "\\" + name
	}
	return name
}

// resolveLink follows a chain of @@@LINK=<target> redirects up to
// maxLinkDepth hops, guarding against cycles by tracking visited keys. It
// returns the final, non-redirect definition.
func (m *Mdict) resolveLink(adaptedKey, def string) (string, error) {
	visited := map[string]bool{adaptedKey: true}
	for depth := 0; ; depth++ {
		target, ok := parseLink(def)
		if !ok {
			return def, nil
		}
		if depth >= maxLinkDepth {
			return "", newErr(ErrKindLinkCycle, "resolve-link", m.path, fmt.Errorf("exceeded max redirect depth %d", maxLinkDepth))
		}
		adaptedTarget := adaptKey(m.cfg, target)
		if visited[adaptedTarget] {
			return "", newErr(ErrKindLinkCycle, "resolve-link", m.path, fmt.Errorf("cycle detected at %q", target))
		}
		visited[adaptedTarget] = true

		next, err := m.lookupExact(adaptedTarget)
		if err != nil {
			return "", err
		}
		def = next
	}
}

// parseLink reports whether def is a redirect and, if so, its target key.
func parseLink(def string) (string, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(def), "\x00\r\n")
	if !strings.HasPrefix(trimmed, linkPrefix) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(linkPrefix):]), true
}

// lookupExact finds every entry matching adaptedKey, fetches the first
// match's raw definition, and returns it without following @@@LINK=
// redirects (callers that need redirect resolution call Lookup instead).
func (m *Mdict) lookupExact(adaptedKey string) (string, error) {
	entries, err := m.matchEntries(adaptedKey)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", newErr(ErrKindNotFound, "lookup-exact", m.path, ErrWordNotFound)
	}
	return m.fetchDefinition(entries[0])
}

// adapt is the normalization matchEntries compares stored keys through:
// mdd resource paths compare as-is (already normalized to backslash form by
// both sides), everything else goes through case-fold/punctuation-strip.
func (m *Mdict) adapt(key string) string {
	if m.isMDD {
		return key
	}
	return adaptKey(m.cfg, key)
}

// matchEntries returns every keyword entry whose adapted key equals
// adaptedKey, via the express-mode hash table when built, otherwise by
// binary-searching the keyword directory's block spans and linearly
// scanning the one candidate block (spec.md §4.5/§4.6).
func (m *Mdict) matchEntries(adaptedKey string) ([]keywordEntry, error) {
	if m.table != nil {
		return m.table.find(adaptedKey, m.adapt), nil
	}

	blockNo := m.keywords.findBlock(adaptedKey, m.adapt)
	if blockNo < 0 {
		return nil, nil
	}
	entries, err := decodeKeywordBlock(m.src, m.keywords.blocks[blockNo], m.cfg)
	if err != nil {
		return nil, err
	}
	var matches []keywordEntry
	for _, e := range entries {
		if m.adapt(e.key) == adaptedKey {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// fetchDefinition resolves a keyword entry's recordOffset to its owning
// record block (via the cache when possible), decompresses that block if
// needed, and slices out the NUL-terminated definition text at the right
// decompressed offset.
func (m *Mdict) fetchDefinition(e keywordEntry) (string, error) {
	ref, err := m.records.find(e.recordOffset)
	if err != nil {
		return "", newErr(ErrKindMalformedBlock, "fetch-definition", m.path, err)
	}

	decomp, ok := m.blockCache.get(ref.ordinal)
	if !ok {
		raw, err := m.src.read(ref.fileOffset, ref.compSize)
		if err != nil {
			return "", newErr(ErrKindIO, "read-record-block", m.path, err)
		}
		// Record blocks are never encrypted; only the keyword index is (spec.md §4.1/§4.4).
		sc, err := readBlock(raw, int(ref.compSize), int(ref.decompSize), false)
		if err != nil {
			return "", newErr(ErrKindMalformedBlock, "decode-record-block", m.path, err)
		}
		decomp = sc.buf
		m.blockCache.put(ref.ordinal, decomp)
	}

	within := int(e.recordOffset - ref.decompOffset)
	if within < 0 || within > len(decomp) {
		return "", newErr(ErrKindMalformedBlock, "fetch-definition", m.path, fmt.Errorf("record offset %d out of block bounds", e.recordOffset))
	}
	if m.isMDD {
		end := len(decomp)
		if e.size >= 0 && within+int(e.size) < end {
			end = within + int(e.size)
		}
		return string(decomp[within:end]), nil
	}
	return textFromNulTerminated(decomp[within:], m.cfg), nil
}

func textFromNulTerminated(b []byte, cfg *dictConfig) string {
	width := cfg.bytesPerUnit()
	end := len(b)
	for i := 0; i+width <= len(b); i += width {
		if isNulUnit(b[i:i+width], width) {
			end = i
			break
		}
	}
	return decodeText(cfg.encoding, b[:end])
}

// search returns up to maxCandidates consecutive keywords starting at the
// first key whose adapted form is >= adaptedPrefix -- the matching key
// itself, or the next-greater one if there's no exact match (spec.md §4.9).
// This is a window, not a prefix filter: once the start of the window is
// found, every following key is included regardless of whether it still
// shares the prefix. Express mode has no ordered structure to walk, so this
// always uses the scan-mode block directory even when the hash table is built.
func (m *Mdict) search(adaptedPrefix string) ([]string, error) {
	var out []string
	started := false
	for _, ref := range m.keywords.blocks {
		if len(out) >= maxCandidates {
			break
		}
		// firstKey/lastKey are stored exactly as decoded off disk; adapt
		// before comparing against the already-adapted prefix (same defect
		// class as findBlock -- a case-folding or punctuation-stripping
		// dictionary would otherwise skip the block the window starts in).
		if !started && m.adapt(ref.lastKey) < adaptedPrefix {
			continue
		}
		entries, err := decodeKeywordBlock(m.src, ref, m.cfg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if len(out) >= maxCandidates {
				break
			}
			if !started {
				if m.adapt(e.key) < adaptedPrefix {
					continue
				}
				started = true
			}
			out = append(out, e.key)
		}
	}
	return out, nil
}
