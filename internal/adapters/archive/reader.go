// Package archive reads member times out of Unix ar archives.
package archive

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blakesmith/ar"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultSize bounds the number of archives kept indexed.
const DefaultSize = 64

// Names used for the symbol table by BSD and GNU ar.
const (
	bsdSymdef       = "__.SYMDEF"
	bsdSymdefSorted = "__.SYMDEF SORTED"
	gnuSymtab       = "/"
	gnuLongNames    = "//"
	bsdLongPrefix   = "#1/"
)

// index is what one read of an archive yields. size and mtime identify the
// file state it was read from.
type index struct {
	size    int64
	mtime   time.Time
	members map[string]time.Time
	toc     time.Time
	hasTOC  bool
}

// Reader implements ports.ArchiveReader. An archive is indexed once and
// reread when its size or modification time changes.
type Reader struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *index]
}

// NewReader creates a Reader caching up to size archives.
func NewReader(size int) (*Reader, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, *index](size)
	if err != nil {
		return nil, err
	}
	return &Reader{cache: cache}, nil
}

// MemberMtime returns the time recorded for member. A missing archive or
// member reports false without an error.
func (r *Reader) MemberMtime(archive, member string) (time.Time, bool, error) {
	idx, err := r.load(archive)
	if err != nil || idx == nil {
		return time.Time{}, false, err
	}
	if t, ok := idx.members[member]; ok {
		return t, true, nil
	}
	t, ok := idx.members[filepath.Base(member)]
	return t, ok, nil
}

// TOCMtime returns the time recorded for the symbol table.
func (r *Reader) TOCMtime(archive string) (time.Time, bool, error) {
	idx, err := r.load(archive)
	if err != nil || idx == nil {
		return time.Time{}, false, err
	}
	return idx.toc, idx.hasTOC, nil
}

func (r *Reader) load(path string) (*index, error) {
	key := filepath.Clean(path)
	info, err := os.Stat(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, readError(err, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.cache.Get(key); ok && idx.size == info.Size() && idx.mtime.Equal(info.ModTime()) {
		return idx, nil
	}

	f, err := os.Open(key)
	if err != nil {
		return nil, readError(err, key)
	}
	defer func() { _ = f.Close() }()

	idx, err := scan(f)
	if err != nil {
		return nil, readError(err, key)
	}
	idx.size = info.Size()
	idx.mtime = info.ModTime()
	r.cache.Add(key, idx)
	return idx, nil
}

// scan walks every header of an archive stream.
func scan(f io.Reader) (*index, error) {
	br := bufio.NewReader(f)
	if err := checkMagic(br); err != nil {
		return nil, err
	}
	rd := ar.NewReader(br)
	idx := &index{members: make(map[string]time.Time)}
	var longNames []byte
	for {
		hdr, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return idx, nil
		}
		if err != nil {
			return nil, err
		}

		raw := strings.TrimRight(hdr.Name, " ")
		switch {
		case raw == gnuSymtab, raw == bsdSymdef, raw == bsdSymdefSorted:
			idx.toc = hdr.ModTime
			idx.hasTOC = true
			continue
		case raw == gnuLongNames:
			if longNames, err = io.ReadAll(rd); err != nil {
				return nil, err
			}
			continue
		}

		name, err := memberName(raw, rd, longNames)
		if err != nil {
			return nil, err
		}
		if name != "" {
			idx.members[name] = hdr.ModTime
		}
	}
}

// checkMagic looks at the global header without consuming it; ar.NewReader
// skips it.
func checkMagic(br *bufio.Reader) error {
	magic, err := br.Peek(len(ar.GLOBAL_HEADER))
	if err != nil {
		return zerr.Wrap(err, "truncated archive header")
	}
	if string(magic) != ar.GLOBAL_HEADER {
		return zerr.New("not an ar archive")
	}
	return nil
}

// memberName decodes the GNU and BSD spellings of a member name.
func memberName(raw string, body io.Reader, longNames []byte) (string, error) {
	switch {
	case strings.HasPrefix(raw, bsdLongPrefix):
		n, err := strconv.Atoi(raw[len(bsdLongPrefix):])
		if err != nil {
			return "", zerr.With(zerr.New("bad long member name"), "name", raw)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(body, buf); err != nil {
			return "", err
		}
		return strings.TrimRight(string(buf), "\x00"), nil
	case strings.HasPrefix(raw, "/") && len(raw) > 1:
		off, err := strconv.Atoi(raw[1:])
		if err != nil || off < 0 || off >= len(longNames) {
			return "", zerr.With(zerr.New("bad long member name"), "name", raw)
		}
		name := longNames[off:]
		if end := strings.Index(string(name), "/\n"); end >= 0 {
			name = name[:end]
		}
		return string(name), nil
	default:
		return strings.TrimSuffix(raw, "/"), nil
	}
}

func readError(err error, path string) error {
	return zerr.With(zerr.Wrap(err, domain.ErrArchiveReadFailed.Error()), "archive", path)
}
