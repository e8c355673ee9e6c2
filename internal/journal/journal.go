package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// Journal is the durable append-only sink for produced events: one JSON
// event per line, fsynced before Append returns. Each producer run starts
// from an empty file, so Open truncates any prior journal at the path.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open creates a fresh journal at path, replacing any existing file and
// creating parent directories as needed.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	return &Journal{path: path, file: f}, nil
}

// Append writes one event as a newline-delimited JSON record and syncs the
// file before returning. A failed Append leaves the producer with no durable
// floor and must be treated as fatal by the caller.
func (j *Journal) Append(e *model.Event) error {
	if e == nil {
		return errors.New("journal: nil event")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New("journal: closed")
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: marshal event: %w", err)
	}
	line = append(line, '\n')

	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf("journal: write event: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync event: %w", err)
	}
	return nil
}

// Replay calls fn for each event in the journal in append order. A torn
// trailing line (from a crashed writer) is silently ignored.
func (j *Journal) Replay(fn func(e *model.Event) error) error {
	if fn == nil {
		return errors.New("journal: replay callback is nil")
	}

	j.mu.Lock()
	path := j.path
	j.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("journal: open for replay: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		line, rerr := reader.ReadBytes('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return fmt.Errorf("journal: replay read: %w", rerr)
		}
		if len(line) == 0 {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			continue
		}
		if !strings.HasSuffix(string(line), "\n") {
			// Partial trailing line from an interrupted write.
			return nil
		}

		var e model.Event
		if uerr := json.Unmarshal(line, &e); uerr != nil {
			return fmt.Errorf("journal: replay decode: %w", uerr)
		}
		if ferr := fn(&e); ferr != nil {
			return ferr
		}

		if errors.Is(rerr, io.EOF) {
			return nil
		}
	}
}

// Len counts the complete events currently in the journal.
func (j *Journal) Len() (int, error) {
	n := 0
	err := j.Replay(func(*model.Event) error {
		n++
		return nil
	})
	return n, err
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying file. Append fails after Close.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
