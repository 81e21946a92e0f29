// Package dataset loads and validates the JSONL prompt dataset consumed
// by the response runner. Validation is strict: any malformed line,
// out-of-enum field, or duplicate id aborts the run before any external
// call is made.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-valence/internal/domain"
)

// maxLineBytes bounds a single dataset line. Anything past this is a
// malformed file, not a real prompt.
const maxLineBytes = 1 << 20

// ValidationError describes why a dataset failed to load. Callers use the
// type to map dataset problems to their dedicated process exit code.
type ValidationError struct {
	Path string
	Line int
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dataset %s line %d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("dataset %s: %s", e.Path, e.Msg)
}

// Load reads every prompt item from the JSONL file at path.
// Blank lines are skipped. The returned slice preserves file order.
func Load(path string) ([]domain.PromptItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ValidationError{Path: path, Msg: fmt.Sprintf("cannot open: %v", err)}
	}
	defer f.Close()

	validate := validator.New()

	var items []domain.PromptItem
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item domain.PromptItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, &ValidationError{Path: path, Line: lineNo, Msg: fmt.Sprintf("malformed JSON: %v", err)}
		}
		if err := validate.Struct(item); err != nil {
			return nil, &ValidationError{Path: path, Line: lineNo, Msg: fmt.Sprintf("invalid prompt item: %v", err)}
		}
		if _, dup := seen[item.ID]; dup {
			return nil, &ValidationError{Path: path, Line: lineNo, Msg: fmt.Sprintf("duplicate prompt id %q", item.ID)}
		}
		seen[item.ID] = struct{}{}

		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ValidationError{Path: path, Line: lineNo, Msg: fmt.Sprintf("read failed: %v", err)}
	}

	return items, nil
}
