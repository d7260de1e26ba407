package security

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"
)

// accessPreviewRunes bounds how much content an access-log entry keeps.
const accessPreviewRunes = 100

// AccessEntry is one line in the auditor's request-scoped access log.
// It is distinct from the store's artifact audit trail: the pipeline
// may run on content that never reaches storage.
type AccessEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actor_id"`
	ArtifactName  string    `json:"artifact_name,omitempty"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Environment   string    `json:"environment"`
	ContentLength int       `json:"content_length"`
	Preview       string    `json:"preview"`
	Role          string    `json:"role,omitempty"`
	Category      string    `json:"category,omitempty"`
}

// AccessFilter selects entries during a query. Zero-value fields match
// everything.
type AccessFilter struct {
	ActorID      string
	ArtifactName string
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Auditor observes every request flowing through its position in the
// pipeline and appends one entry to a JSONL access log. It always
// returns a safe verdict: its job is observation, not gatekeeping.
type Auditor struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewAuditor opens (creating if needed) the access log at path.
func NewAuditor(path string) (*Auditor, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure access log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	return &Auditor{path: path, file: f}, nil
}

// Close releases the log file handle.
func (a *Auditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *Auditor) Name() string { return "auditor" }

func (a *Auditor) Process(ctx context.Context, content string, sctx Context) (Result, error) {
	entry := AccessEntry{
		Timestamp:     time.Now().UTC(),
		ActorID:       sctx.ActorID,
		ArtifactName:  sctx.ArtifactName,
		RiskLevel:     sctx.RiskLevel,
		Environment:   sctx.Environment,
		ContentLength: utf8.RuneCountInString(content),
		Preview:       preview(content),
		Role:          sctx.Role,
		Category:      sctx.Category,
	}

	logged := true
	var logErr string
	if err := a.append(entry); err != nil {
		// Never block on observation failure; report it in metadata.
		logged = false
		logErr = err.Error()
	}

	meta := map[string]any{"audited": logged, "log_path": a.path}
	if logErr != "" {
		meta["error"] = logErr
	}
	return safeResult(content, meta), nil
}

func (a *Auditor) append(entry AccessEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode access entry: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return fmt.Errorf("access log is closed")
	}
	if _, err := a.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write access entry: %w", err)
	}
	return nil
}

// Query scans the access log and returns entries matching the filter
// in append order. Each call re-reads the log's current state;
// malformed lines are skipped.
func (a *Auditor) Query(ctx context.Context, f AccessFilter) ([]AccessEntry, error) {
	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open access log: %w", err)
	}
	defer file.Close()

	var out []AccessEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("access log query: %w", err)
		}
		var e AccessEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if f.ArtifactName != "" && e.ArtifactName != f.ArtifactName {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan access log: %w", err)
	}
	return out, nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= accessPreviewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:accessPreviewRunes])
}
