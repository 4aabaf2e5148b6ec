package mailbox

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// logFile is the append-only JSONL file within each topic directory.
const logFile = "index.jsonl"

// Record is one line of a topic log.
type Record struct {
	ID      string          `json:"id"`
	Time    time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Store is an append-only JSONL topic log shared through the filesystem.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store for topic under dir. Directories are created
// lazily on first append.
func NewStore(dir, topic string) *Store {
	return &Store{path: filepath.Join(dir, topic, logFile)}
}

// Path returns the log file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes one record. Each line is far below PIPE_BUF, so O_APPEND
// keeps concurrent writers from different processes from interleaving.
func (s *Store) Append(payload []byte) (Record, error) {
	if !json.Valid(payload) {
		return Record{}, fmt.Errorf("mailbox: payload is not valid JSON")
	}
	rec := Record{
		ID:      generateID(),
		Time:    time.Now().UTC(),
		Payload: json.RawMessage(payload),
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("mailbox: marshal record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Record{}, fmt.Errorf("mailbox: create directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("mailbox: open log for append: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return Record{}, fmt.Errorf("mailbox: append to log: %w", err)
	}
	return rec, f.Close()
}

// Size returns the current log length in bytes, 0 if it does not exist.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("mailbox: stat log: %w", err)
	}
	return info.Size(), nil
}

// ReadFrom returns the complete records after byte offset and the offset
// just past the last complete line. A trailing partial line is left for
// the next read. Malformed lines are skipped.
func (s *Store) ReadFrom(offset int64) ([]Record, int64, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("mailbox: open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("mailbox: seek log: %w", err)
	}

	var records []Record
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, offset, fmt.Errorf("mailbox: read log: %w", err)
		}
		offset += int64(len(line))

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, offset, nil
}

var idCounter atomic.Uint64

// generateID combines time, PID and a counter so writers in different
// processes never collide.
func generateID() string {
	return fmt.Sprintf("rec-%d-%d-%d", time.Now().UnixNano(), os.Getpid(), idCounter.Add(1))
}
