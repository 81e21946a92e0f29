package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrAppendExisting is returned by the append-only strategy when asked to
// persist an update for an id that is already on disk. Overwrites require
// the atomic rewrite strategy.
var ErrAppendExisting = errors.New("append-only ledger cannot overwrite an existing id")

// FlushStrategy persists the effect of a single upsert. Implementations
// must guarantee that a reader of the ledger path at any instant sees a
// syntactically valid sequence of complete records: either the previous
// state or the new one, never a torn line.
type FlushStrategy interface {
	// Flush persists the store after an upsert. lines holds every record
	// in first-seen order; updated is the upserted record's serialized
	// form and updatedIsNew reports whether its id was first seen now.
	Flush(path string, lines []json.RawMessage, updated json.RawMessage, updatedIsNew bool) error

	// Close releases any file handles held by the strategy.
	Close() error
}

// AtomicRewrite persists every upsert by serializing the full store to a
// temporary sibling file, syncing it to durable storage, and renaming it
// over the destination. Safe for overwrites; cost grows with store size.
type AtomicRewrite struct{}

// NewAtomicRewrite returns the full-rewrite flush strategy.
func NewAtomicRewrite() *AtomicRewrite { return &AtomicRewrite{} }

// Flush writes all lines to a temp sibling, fsyncs, and renames it over
// path. The rename is the commit point.
func (s *AtomicRewrite) Flush(path string, lines []json.RawMessage, _ json.RawMessage, _ bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}

	for _, line := range lines {
		if _, err := f.Write(line); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write temp file: %w", err)
		}
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write temp file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Close is a no-op; the rewrite strategy holds no open handles.
func (s *AtomicRewrite) Close() error { return nil }

// AppendOnly persists new records one line at a time, flushed and fsynced
// individually, without ever rewriting existing lines. It refuses
// overwrites; runs that re-process existing ids must use AtomicRewrite.
type AppendOnly struct {
	f *os.File
}

// NewAppendOnly returns the append-only flush strategy.
func NewAppendOnly() *AppendOnly { return &AppendOnly{} }

// Flush appends the updated record and fsyncs. Returns ErrAppendExisting
// when the id is already present on disk.
func (s *AppendOnly) Flush(path string, _ []json.RawMessage, updated json.RawMessage, updatedIsNew bool) error {
	if !updatedIsNew {
		return ErrAppendExisting
	}

	if s.f == nil {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open ledger for append: %w", err)
		}
		s.f = f
	}

	if _, err := s.f.Write(updated); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if _, err := s.f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

// Close closes the append handle, if one was opened.
func (s *AppendOnly) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
