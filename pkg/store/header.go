package store

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const headerDelimiter = "---\n"

// encodeArtifactFile renders an artifact as a front-matter header
// followed by the verbatim content body.
func encodeArtifactFile(a *Artifact) ([]byte, error) {
	header, err := yaml.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact header: %w", err)
	}
	var b strings.Builder
	b.WriteString(headerDelimiter)
	b.Write(header)
	b.WriteString(headerDelimiter)
	b.WriteString(a.Content)
	return []byte(b.String()), nil
}

// decodeArtifactFile parses a front-matter artifact file. The body is
// returned verbatim, exactly as stored, so checksums computed over it
// are stable.
func decodeArtifactFile(raw []byte) (*Artifact, error) {
	text := string(raw)
	if !strings.HasPrefix(text, headerDelimiter) {
		return nil, fmt.Errorf("artifact file: missing header delimiter")
	}
	rest := text[len(headerDelimiter):]
	end := strings.Index(rest, headerDelimiter)
	if end < 0 {
		return nil, fmt.Errorf("artifact file: unterminated header")
	}

	var a Artifact
	if err := yaml.Unmarshal([]byte(rest[:end]), &a); err != nil {
		return nil, fmt.Errorf("parse artifact header: %w", err)
	}
	a.Content = rest[end+len(headerDelimiter):]
	return &a, nil
}
