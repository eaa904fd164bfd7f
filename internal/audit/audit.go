// Package audit keeps a tamper-evident record of removal batches: one JSON
// object per line, each carrying the SHA-256 of its predecessor.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breeze-rmm/swcheck/internal/logging"
)

var log = logging.L("audit")

const (
	fileName    = "removals.jsonl"
	genesisHash = "genesis"
	brokenHash  = "chain-broken"
)

// Event types recorded in the removal audit trail.
const (
	EventBatchStarted     = "batch_started"
	EventBatchCompleted   = "batch_completed"
	EventRemovalAttempt   = "removal_attempt"
	EventRemovalSucceeded = "removal_succeeded"
	EventRemovalFailed    = "removal_failed"
	EventLogRotated       = "log_rotated"
)

// Outcomes and batch ends are fsynced; attempts are not.
var syncedEvents = map[string]bool{
	EventRemovalSucceeded: true,
	EventRemovalFailed:    true,
	EventBatchCompleted:   true,
}

// Entry is a single audit record.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"eventType"`
	BatchID   string         `json:"batchId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prevHash"`
	EntryHash string         `json:"entryHash"`
}

// Logger appends entries to {dataDir}/removals.jsonl. When the file would
// exceed its size limit it is rotated and the new file opens with an
// EventLogRotated entry whose prevHash continues the chain.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	written    int64
	prevHash   string
	dropped    atomic.Int64
}

func NewLogger(dataDir string, maxSizeMB, maxBackups int) (*Logger, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create audit data dir: %w", err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxBackups <= 0 {
		maxBackups = 3
	}

	l := &Logger{
		filePath:   filepath.Join(dataDir, fileName),
		maxSize:    int64(maxSizeMB) << 20,
		maxBackups: maxBackups,
		prevHash:   genesisHash,
	}
	f, size, err := logging.OpenAppend(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l.file, l.written = f, size

	log.Debug("audit logger started", "path", l.filePath)
	return l, nil
}

func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Log appends one entry. Failures are logged and counted, never returned:
// removal must not stop because the audit disk is full. The chain only
// advances on a successful write. Safe on a nil receiver.
func (l *Logger) Log(eventType string, batchID string, details map[string]any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{EventType: eventType, BatchID: batchID, Details: details}
	data, err := l.seal(&entry)
	if err != nil {
		log.Error("audit entry dropped", logging.KeyError, err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}

	if l.written > 0 && l.written+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			log.Error("audit log rotation failed", logging.KeyError, err)
			l.dropped.Add(1)
			return
		}
		// The sentinel moved the chain; re-seal against it.
		if data, err = l.seal(&entry); err != nil {
			log.Error("audit entry dropped", logging.KeyError, err, "eventType", eventType)
			l.dropped.Add(1)
			return
		}
	}

	if err := l.write(entry, data); err != nil {
		log.Error("audit entry dropped", logging.KeyError, err, "eventType", eventType)
		l.dropped.Add(1)
		return
	}

	if syncedEvents[eventType] {
		if err := l.file.Sync(); err != nil {
			log.Error("audit fsync failed", logging.KeyError, err, "eventType", eventType)
		}
	}
}

// seal stamps entry, links it to the current chain head and returns its
// JSON line.
func (l *Logger) seal(entry *Entry) ([]byte, error) {
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	entry.PrevHash = l.prevHash
	hash, err := hashEntry(*entry)
	if err != nil {
		return nil, err
	}
	entry.EntryHash = hash

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal audit entry: %w", err)
	}
	return append(data, '\n'), nil
}

func (l *Logger) write(entry Entry, data []byte) error {
	n, err := l.file.Write(data)
	l.written += int64(n)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	l.prevHash = entry.EntryHash
	return nil
}

func (l *Logger) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if err := logging.ShiftBackups(l.filePath, l.maxBackups); err != nil {
		log.Warn("audit backup shift incomplete", logging.KeyError, err)
	}

	f, size, err := logging.OpenAppend(l.filePath)
	if err != nil {
		return fmt.Errorf("reopen audit log: %w", err)
	}
	l.file, l.written = f, size

	sentinel := Entry{
		EventType: EventLogRotated,
		Details:   map[string]any{"previousFile": logging.BackupName(l.filePath, 1)},
	}
	data, err := l.seal(&sentinel)
	if err == nil {
		err = l.write(sentinel, data)
	}
	if err != nil {
		log.Error("rotation sentinel not written, hash chain broken", logging.KeyError, err)
		l.dropped.Add(1)
		l.prevHash = brokenHash
	}
	return nil
}

// Close is safe on a nil receiver.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// DroppedCount returns the number of entries that failed to write, or -1
// for a nil logger.
func (l *Logger) DroppedCount() int64 {
	if l == nil {
		return -1
	}
	return l.dropped.Load()
}

// hashEntry length-prefixes every field so no two field combinations hash
// the same.
func hashEntry(entry Entry) (string, error) {
	h := sha256.New()
	for _, field := range []string{entry.Timestamp, entry.EventType, entry.BatchID, entry.PrevHash} {
		fmt.Fprintf(h, "%d:%s", len(field), field)
	}
	if entry.Details != nil {
		detailBytes, err := json.Marshal(entry.Details)
		if err != nil {
			return "", fmt.Errorf("marshal details for hash: %w", err)
		}
		fmt.Fprintf(h, "%d:", len(detailBytes))
		h.Write(detailBytes)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify re-computes the hash chain of one audit file and returns the number
// of entries checked. The first entry may link to any prevHash so a rotated
// file verifies on its own.
func Verify(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read audit log: %w", err)
	}

	prev := ""
	count := 0
	for i, line := range splitLines(data) {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return count, fmt.Errorf("line %d: %w", i+1, err)
		}
		if i > 0 && entry.PrevHash != prev {
			return count, fmt.Errorf("line %d: prevHash does not link to previous entry", i+1)
		}
		want, err := hashEntry(entry)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", i+1, err)
		}
		if want != entry.EntryHash {
			return count, fmt.Errorf("line %d: entry hash mismatch", i+1)
		}
		prev = entry.EntryHash
		count++
	}
	return count, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
