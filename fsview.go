package mdict

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
)

// FS wraps an *Mdict to implement io/fs.FS, so a dictionary's keywords (mdx)
// or resources (mdd) can be served through anything that accepts a
// filesystem, e.g. http.FileServer(http.FS(fsView)).
type FS struct {
	mdict *Mdict
}

// NewFS wraps m as an io/fs.FS.
func NewFS(m *Mdict) *FS {
	if m == nil {
		panic("mdict: NewFS given a nil Mdict")
	}
	return &FS{mdict: m}
}

func (mfs *FS) modTime() time.Time {
	raw := mfs.mdict.hdr.creationDate
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006.01.02 15:04:05", raw); err == nil {
		return t
	}
	log.Warningf("fsview: could not parse CreationDate %q, using zero time", raw)
	return time.Time{}
}

// Open opens name as a keyword lookup (mdx) or resource path (mdd). The
// root directory "." lists every keyword/resource via ReadDir.
func (mfs *FS) Open(name string) (fs.File, error) {
	if name == "." || name == "" || strings.HasSuffix(name, "/") {
		return &file{fs: mfs, name: ".", isDir: true, info: &fileInfo{name: ".", isDir: true, modTime: mfs.modTime()}}, nil
	}

	content, err := mfs.mdict.Lookup(name)
	if err != nil {
		if errors.Is(err, ErrWordNotFound) {
			return nil, fs.ErrNotExist
		}
		return nil, fmt.Errorf("mdict fs: open %q: %w", name, err)
	}

	data := []byte(content)
	info := &fileInfo{name: path.Base(name), size: int64(len(data)), modTime: mfs.modTime()}
	return &file{fs: mfs, name: name, content: data, reader: bytes.NewReader(data), info: info}, nil
}

type file struct {
	fs      *FS
	name    string
	isDir   bool
	content []byte
	reader  *bytes.Reader
	info    *fileInfo
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }

func (f *file) Read(b []byte) (int, error) {
	if f.isDir {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fmt.Errorf("is a directory")}
	}
	if f.reader == nil {
		return 0, &fs.PathError{Op: "read", Path: f.name, Err: fs.ErrClosed}
	}
	return f.reader.Read(b)
}

func (f *file) Close() error {
	f.reader = nil
	f.content = nil
	return nil
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	if f.reader == nil {
		return 0, &fs.PathError{Op: "seek", Path: f.name, Err: fs.ErrClosed}
	}
	return f.reader.Seek(offset, whence)
}

// ReadDir lists every keyword (mdx) or resource path (mdd) in the
// dictionary, decoding every keyword block on each call if the express-mode
// table was not built at Open.
func (f *file) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: f.name, Err: fmt.Errorf("not a directory")}
	}
	entries, err := f.fs.mdict.allKeys()
	if err != nil {
		return nil, fmt.Errorf("mdict fs: readdir: %w", err)
	}
	modTime := f.fs.modTime()
	out := make([]fs.DirEntry, 0, len(entries))
	for _, k := range entries {
		name := k
		if f.fs.mdict.IsMDD() {
			name = strings.TrimLeft(k, "\\/")
		}
		out = append(out, &fileInfo{name: path.Base(name), modTime: modTime})
	}
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

type fileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (fi *fileInfo) Name() string               { return fi.name }
func (fi *fileInfo) Size() int64                { return fi.size }
func (fi *fileInfo) IsDir() bool                { return fi.isDir }
func (fi *fileInfo) ModTime() time.Time         { return fi.modTime }
func (fi *fileInfo) Sys() any                   { return nil }
func (fi *fileInfo) Info() (fs.FileInfo, error) { return fi, nil }
func (fi *fileInfo) Type() fs.FileMode          { return fi.Mode().Type() }
func (fi *fileInfo) Mode() fs.FileMode {
	if fi.isDir {
		return fs.ModeDir | 0555
	}
	return 0444
}

var (
	_ fs.File         = (*file)(nil)
	_ fs.ReadDirFile   = (*file)(nil)
	_ fs.FS            = (*FS)(nil)
	_ fs.FileInfo      = (*fileInfo)(nil)
	_ fs.DirEntry      = (*fileInfo)(nil)
)
