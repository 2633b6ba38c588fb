// Package history persists the set of cache entries that have already been
// converted, so restarts never reprocess them.
//
// The file holds one source file name per line. It is rewritten in full after
// every addition; names containing newlines are unsupported.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"ucmusic/internal/fileutil"
)

// Store is an in-memory set of processed names mirrored to a text file. A
// Store is owned by a single goroutine.
type Store struct {
	path  string
	names map[string]struct{}
}

// Open returns an empty store bound to path. Call Load to read existing entries.
func Open(path string) *Store {
	return &Store{path: path, names: make(map[string]struct{})}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory set with the file contents. A missing file
// yields an empty set.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.names = make(map[string]struct{})
			return nil
		}
		return fmt.Errorf("read history: %w", err)
	}

	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("parse history: %w", err)
	}
	s.names = names
	return nil
}

// Contains reports whether name was already processed.
func (s *Store) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Add records name and persists the whole set before returning.
func (s *Store) Add(name string) error {
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("history: name %q contains a line break", name)
	}
	s.names[name] = struct{}{}
	return s.Save()
}

// Save overwrites the backing file with one name per line.
func (s *Store) Save() error {
	var buf bytes.Buffer
	for name := range s.names {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}
	if err := fileutil.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Len returns the number of recorded names.
func (s *Store) Len() int {
	return len(s.names)
}

// Names returns the recorded names sorted for display.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
