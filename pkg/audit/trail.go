package audit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

var (
	// ErrChainBroken reports that the hash chain of the trail does not
	// verify, usually because a persisted record was edited or removed.
	ErrChainBroken = errors.New("audit chain is broken")
)

// genesisHash seeds the chain before the first record is written.
const genesisHash = "genesis"

// Trail is a file-backed, append-only audit log.
//
// Appends are serialized by a mutex and go through a single O_APPEND
// file handle. Queries re-read the file from the start on every call,
// so they observe the trail's current state and never block writers.
type Trail struct {
	path string

	mu   sync.Mutex
	file *os.File
	head string
}

// Open creates or opens the audit trail at path. If the file already
// holds records, the chain head is recovered from the last valid line.
func Open(path string) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit trail: %w", err)
	}

	head, err := recoverHead(path)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Trail{path: path, file: f, head: head}, nil
}

// Close releases the underlying file handle.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Path returns the location of the trail file.
func (t *Trail) Path() string {
	return t.path
}

// Append writes one record to the trail and returns it with identity,
// timestamp and chain hashes filled in. The stored record is final:
// the trail offers no edit or delete operation.
func (t *Trail) Append(ctx context.Context, r Record) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit append: %w", err)
	}
	if !r.EventType.Valid() {
		return nil, fmt.Errorf("audit append: unknown event type %q", r.EventType)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil, errors.New("audit trail is closed")
	}

	r.ID = uuid.New().String()
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	r.PreviousHash = t.head

	hash, err := recordHash(r)
	if err != nil {
		return nil, err
	}
	r.RecordHash = hash

	line, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode audit record: %w", err)
	}
	if _, err := t.file.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write audit record: %w", err)
	}

	t.head = r.RecordHash
	return &r, nil
}

// Query scans the trail and returns records matching the filter, in
// append order. Each call is a fresh scan of the file's current state.
// Malformed lines are skipped rather than failing the whole query.
func (t *Trail) Query(ctx context.Context, f Filter) ([]Record, error) {
	file, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	defer file.Close()

	var out []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("audit query: %w", err)
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if !f.matches(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit trail: %w", err)
	}
	return out, nil
}

// Verify walks the whole trail and checks that every record's hash is
// consistent with its content and its predecessor. Returns
// ErrChainBroken on the first inconsistency.
func (t *Trail) Verify(ctx context.Context) error {
	file, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open audit trail: %w", err)
	}
	defer file.Close()

	head := genesisHash
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("audit verify: %w", err)
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return fmt.Errorf("line %d: %w", line, ErrChainBroken)
		}
		if r.PreviousHash != head {
			return fmt.Errorf("line %d: previous hash mismatch: %w", line, ErrChainBroken)
		}
		want, err := recordHash(r)
		if err != nil {
			return err
		}
		if r.RecordHash != want {
			return fmt.Errorf("line %d: record hash mismatch: %w", line, ErrChainBroken)
		}
		head = r.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan audit trail: %w", err)
	}
	return nil
}

// recordHash hashes the canonical JSON form of the record with its
// RecordHash field cleared.
func recordHash(r Record) (string, error) {
	r.RecordHash = ""
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode audit record: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize audit record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// recoverHead finds the chain head of an existing trail file.
func recoverHead(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return genesisHash, nil
		}
		return "", fmt.Errorf("open audit trail: %w", err)
	}
	defer file.Close()

	head := genesisHash
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if r.RecordHash != "" {
			head = r.RecordHash
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan audit trail: %w", err)
	}
	return head, nil
}
