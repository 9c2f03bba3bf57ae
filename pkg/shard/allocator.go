// Package shard places stored files into numbered, capacity-bounded directories.
package shard

import (
	"fmt"
	"path"
	"strconv"
	"sync"

	"github.com/spf13/afero"
)

// MaxFilesPerDir is the default number of files a shard may hold before the
// next ordinal is opened.
const MaxFilesPerDir = 5000

const nameWidth = 3

// Shard is a directory under the images root, e.g. "001".
type Shard struct {
	Ordinal int
	Name    string
}

// File returns the root-relative path of filename inside the shard.
func (s Shard) File(filename string) string {
	return path.Join(s.Name, filename)
}

// Allocator chooses the shard the next file is written to. One allocator
// serializes decisions for every caller that shares it; the file write itself
// happens after Allocate returns, so the capacity is a soft bound.
type Allocator struct {
	mutex    sync.Mutex
	fs       afero.Fs
	maxFiles int
}

// NewAllocator uses fs as the images root. A non-positive maxFiles falls back
// to MaxFilesPerDir.
func NewAllocator(fs afero.Fs, maxFiles int) *Allocator {
	if maxFiles <= 0 {
		maxFiles = MaxFilesPerDir
	}
	return &Allocator{
		fs:       fs,
		maxFiles: maxFiles,
	}
}

// Allocate returns the highest existing shard, or a new one when it is full
// or none exist yet. The returned directory always exists.
func (a *Allocator) Allocate() (Shard, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	current, ok, err := a.highest()
	if err != nil {
		return Shard{}, err
	}

	if !ok {
		return a.create(1)
	}

	entries, err := afero.ReadDir(a.fs, current.Name)
	if err != nil {
		return Shard{}, fmt.Errorf("failed to list shard %s: %w", current.Name, err)
	}
	if len(entries) >= a.maxFiles {
		return a.create(current.Ordinal + 1)
	}

	return current, nil
}

func (a *Allocator) highest() (Shard, bool, error) {
	entries, err := afero.ReadDir(a.fs, ".")
	if err != nil {
		return Shard{}, false, fmt.Errorf("failed to list images root: %w", err)
	}

	best := Shard{}
	found := false
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ordinal, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		if !found || ordinal > best.Ordinal {
			best = Shard{Ordinal: ordinal, Name: entry.Name()}
			found = true
		}
	}

	return best, found, nil
}

func (a *Allocator) create(ordinal int) (Shard, error) {
	shard := Shard{Ordinal: ordinal, Name: Name(ordinal)}
	if err := a.fs.MkdirAll(shard.Name, 0755); err != nil {
		return Shard{}, fmt.Errorf("failed to create shard %s: %w", shard.Name, err)
	}
	return shard, nil
}

// Name formats an ordinal as a zero-padded shard directory name.
func Name(ordinal int) string {
	return fmt.Sprintf("%0*d", nameWidth, ordinal)
}

func parseName(name string) (int, bool) {
	if len(name) < nameWidth {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	ordinal, err := strconv.Atoi(name)
	if err != nil || ordinal <= 0 {
		return 0, false
	}
	return ordinal, true
}
