// Package ledger implements the durable, id-keyed, order-preserving JSONL
// store backing the response and judgment outputs. The store holds at most
// one record per id; on-disk order reflects first-seen id order and is
// preserved across runs even when later runs only update existing ids.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// maxLineBytes bounds a single ledger line during load.
const maxLineBytes = 4 << 20

// ParseError indicates an existing ledger file that cannot be trusted.
// It is fatal: a run never proceeds on top of a store it cannot read back.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ledger %s line %d: %s", e.Path, e.Line, e.Reason)
}

// Load reads an existing ledger file into an id-keyed map plus the
// first-seen id order. A missing file yields an empty store. Every line
// must be a JSON object carrying a non-empty string under idField.
func Load(path, idField string) (map[string]json.RawMessage, []string, error) {
	byID := make(map[string]json.RawMessage)
	var order []string

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return byID, order, nil
		}
		return nil, nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, nil, &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf("malformed JSON: %v", err)}
		}

		rawID, ok := obj[idField]
		if !ok {
			return nil, nil, &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf("missing %q field", idField)}
		}
		var id string
		if err := json.Unmarshal(rawID, &id); err != nil || id == "" {
			return nil, nil, &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf("invalid %q field", idField)}
		}

		if _, exists := byID[id]; !exists {
			order = append(order, id)
		}
		byID[id] = json.RawMessage(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf("read failed: %v", err)}
	}

	return byID, order, nil
}

// Ledger is the mutable handle over one ledger file. It is owned by a
// single invocation; concurrent writers against the same path are
// unsupported.
type Ledger struct {
	path  string
	byID  map[string]json.RawMessage
	order []string
	flush FlushStrategy
}

// Open loads the ledger at path and attaches the given flush strategy.
func Open(path, idField string, strategy FlushStrategy) (*Ledger, error) {
	byID, order, err := Load(path, idField)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		path:  path,
		byID:  byID,
		order: order,
		flush: strategy,
	}, nil
}

// Has reports whether a record for id is already present.
func (l *Ledger) Has(id string) bool {
	_, ok := l.byID[id]
	return ok
}

// Len returns the number of distinct ids in the store.
func (l *Ledger) Len() int { return len(l.order) }

// Get returns the raw record for id, if present.
func (l *Ledger) Get(id string) (json.RawMessage, bool) {
	raw, ok := l.byID[id]
	return raw, ok
}

// Order returns the first-seen id order. The caller must not mutate it.
func (l *Ledger) Order() []string { return l.order }

// Upsert inserts or replaces the record for id and flushes the store
// durably before returning. Once Upsert returns nil, a crash cannot lose
// the record.
func (l *Ledger) Upsert(id string, record any) error {
	if id == "" {
		return fmt.Errorf("ledger: empty record id")
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ledger: marshal record %s: %w", id, err)
	}

	_, existed := l.byID[id]
	l.byID[id] = line
	if !existed {
		l.order = append(l.order, id)
	}

	lines := make([]json.RawMessage, len(l.order))
	for i, recordID := range l.order {
		lines[i] = l.byID[recordID]
	}

	if err := l.flush.Flush(l.path, lines, line, !existed); err != nil {
		return fmt.Errorf("ledger: flush %s: %w", l.path, err)
	}
	return nil
}

// Close releases any resources held by the flush strategy.
func (l *Ledger) Close() error { return l.flush.Close() }
