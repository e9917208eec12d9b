package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/0xmilen/solsentry/internal/model"
)

// DefaultMaxFileSize guards against pathological inputs; larger files are skipped.
const DefaultMaxFileSize = 4 << 20

// Unit is one loaded input file, immutable after load.
type Unit struct {
	Path       string
	Content    string
	Language   model.Language
	lineStarts []int // byte offset of each line start
}

// NewUnit builds a Unit with its line index precomputed.
func NewUnit(path, content string) *Unit {
	u := &Unit{Path: filepath.ToSlash(path), Content: content, Language: model.LanguageForPath(path)}
	u.lineStarts = append(u.lineStarts, 0)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			u.lineStarts = append(u.lineStarts, i+1)
		}
	}
	return u
}

// LineOf maps a byte offset to a 1-based line number.
func (u *Unit) LineOf(offset int) int {
	if offset < 0 {
		return 1
	}
	lo, hi := 0, len(u.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if u.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

// LineCount returns the number of lines in the unit.
func (u *Unit) LineCount() int { return len(u.lineStarts) }

// Set is the loaded corpus for one run plus load-time diagnostics.
type Set struct {
	Units   []*Unit
	Notes   []model.Note
	Skipped int
}

// Discover expands paths into the list of analyzable files. A path may be a
// single file or a directory walked recursively. Unreadable entries become
// warning notes; a missing root path is a hard error.
func Discover(paths []string) ([]string, []model.Note, error) {
	var files []string
	var notes []model.Note
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				notes = append(notes, model.Note{Level: "warning", File: path, Message: "unreadable entry skipped: " + err.Error()})
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if analyzable(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	sort.Strings(files)
	return files, notes, nil
}

func analyzable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".sol", ".move", ".rs":
		return true
	}
	return false
}

// LoadAll reads files with bounded concurrency. Read failures and oversized
// files are skipped with a note; they never abort the batch.
func LoadAll(ctx context.Context, files []string, maxSize int64) *Set {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	set := &Set{}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(f)
			if err == nil && info.Size() > maxSize {
				mu.Lock()
				set.Notes = append(set.Notes, model.Note{Level: "warning", File: filepath.ToSlash(f), Message: fmt.Sprintf("file exceeds %d bytes, skipped", maxSize)})
				set.Skipped++
				mu.Unlock()
				return nil
			}
			b, err := os.ReadFile(f)
			if err != nil {
				mu.Lock()
				set.Notes = append(set.Notes, model.Note{Level: "warning", File: filepath.ToSlash(f), Message: "unreadable file skipped: " + err.Error()})
				set.Skipped++
				mu.Unlock()
				return nil
			}
			u := NewUnit(f, string(b))
			mu.Lock()
			set.Units = append(set.Units, u)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	// restore deterministic order after concurrent loads
	sort.Slice(set.Units, func(i, j int) bool { return set.Units[i].Path < set.Units[j].Path })
	return set
}
