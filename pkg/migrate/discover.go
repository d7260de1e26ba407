package migrate

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxScanFileSize bounds how large a source file the scanner will
// read. Generated bundles past this are noise, not prompts.
const maxScanFileSize = 1 << 20

const previewRunes = 80

// sourceExtensions are the file types the scanner inspects.
var sourceExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".ts":   true,
	".go":   true,
	".java": true,
	".rb":   true,
}

// promptAssignment matches variable assignments whose name suggests an
// embedded prompt, capturing the variable and the literal opening.
var promptAssignment = regexp.MustCompile(
	`(?i)\b(\w*(?:prompt|system_message|instruction)s?\w*)\s*[:=]\s*f?r?b?["` + "`" + `'](.*)`)

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// Finding is one candidate prompt discovered in a source tree.
type Finding struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Variable string `json:"variable"`
	Preview  string `json:"preview"`
}

// Discover walks a source tree and reports string assignments that
// look like embedded prompts. It is a triage aid: findings are
// candidates for migration, not guaranteed prompts.
func Discover(root string) ([]Finding, error) {
	var findings []Finding

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxScanFileSize {
			return nil
		}

		found, err := scanFile(path)
		if err != nil {
			return err
		}
		findings = append(findings, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", root, err)
	}
	return findings, nil
}

func scanFile(path string) ([]Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var findings []Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanFileSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		m := promptAssignment.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		findings = append(findings, Finding{
			Path:     path,
			Line:     lineNo,
			Variable: m[1],
			Preview:  preview(m[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", path, err)
	}
	return findings, nil
}

// FindingsBatch converts findings into a batch skeleton: one item per
// finding, named after the source variable, with the preview as
// placeholder content. The output is a starting point for editing, not
// a finished import document.
func FindingsBatch(findings []Finding, source string) *Batch {
	b := &Batch{Source: source}
	seen := make(map[string]int)
	for _, f := range findings {
		name := slugify(f.Variable)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		b.Prompts = append(b.Prompts, Item{
			Name:    name,
			Content: f.Preview,
			Version: "0.1.0",
			Tags:    []string{"discovered"},
		})
	}
	return b
}

// slugify turns an identifier into a vault-safe artifact name. Hyphens
// go at word boundaries only: underscores and lower-to-upper camelCase
// transitions, never between consecutive capitals.
func slugify(ident string) string {
	var b strings.Builder
	prevLower := false
	prevHyphen := true
	for _, r := range ident {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower && !prevHyphen {
				b.WriteByte('-')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower, prevHyphen = false, false
		case r == '_' || r == '-':
			if !prevHyphen {
				b.WriteByte('-')
			}
			prevLower, prevHyphen = false, true
		default:
			b.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z'
			prevHyphen = false
		}
	}
	return strings.Trim(b.String(), "-")
}

func preview(s string) string {
	s = strings.TrimRight(s, `"'`+"`")
	runes := []rune(s)
	if len(runes) <= previewRunes {
		return s
	}
	return string(runes[:previewRunes]) + "..."
}
