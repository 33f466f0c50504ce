// Package contextres locates the defining source block of a named symbol
// inside a project tree, without a full parser. The reasoning session calls
// it when a verdict needs more code than the finding's snippet.
//
// Extraction is a best-effort line scanner. Known false-negative modes:
// nested symbols that shadow the requested name, and multi-line signatures
// with unusual formatting. A miss is a non-error; the session simply
// proceeds without the extra context.
package contextres

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TruncationMarker is appended to content cut off at the file size ceiling.
const TruncationMarker = "\n[WARNING: file too large, truncated]"

// DefaultMaxFileBytes bounds how much of a single file is read.
const DefaultMaxFileBytes = 1 << 20 // 1 MiB

// Resolved is a successfully extracted definition. At most one is returned
// per request; the first match in traversal order wins.
type Resolved struct {
	Requested string // raw name as the reasoning session asked for it
	Symbol    string // cleaned bare identifier actually searched
	FilePath  string // absolute path of the defining file
	Language  string // detected language of that file
	Code      string // extracted definition block
}

// Resolver walks project trees looking for symbol definitions.
type Resolver struct {
	// MaxFileBytes is the per-file read ceiling. Zero means DefaultMaxFileBytes.
	MaxFileBytes int64
}

// skippedDirs are never descended into: version-control metadata and
// dependency vendoring, which would dominate the walk and only ever yield
// third-party definitions.
var skippedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"vendor":       true,
	"node_modules": true,
}

// CleanSymbolName reduces a symbol reference from reasoning output to the
// bare identifier definitions are indexed by: call arguments are stripped
// (text after the first '('), then only the final dot-qualified segment is
// kept, so "g.writeHeader(a)" and "http.ServeContent" become "writeHeader"
// and "ServeContent". Idempotent.
func CleanSymbolName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// Resolve searches projectRoot for a definition of rawName. It returns
// (nil, nil) when nothing matches, the project path is invalid, or no
// recognized source files exist: absence of context is a signal, not a
// failure. Per-file read errors are logged and the file skipped.
func (r *Resolver) Resolve(projectRoot, rawName string) (*Resolved, error) {
	symbol := CleanSymbolName(rawName)
	if symbol == "" {
		return nil, nil
	}

	info, err := os.Stat(projectRoot)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "warning: context search root %s is not a directory\n", projectRoot)
		return nil, nil
	}

	var found *Resolved
	err = filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s during context search: %v\n", path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if isTestFile(name) {
			return nil
		}
		lang, ok := languageForFile(name)
		if !ok {
			return nil
		}

		content, err := r.readLimited(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to read %s: %v\n", path, err)
			return nil
		}

		code := extractDefinition(lang, content, symbol)
		if code == "" {
			return nil
		}

		found = &Resolved{
			Requested: rawName,
			Symbol:    symbol,
			FilePath:  path,
			Language:  lang.name,
			Code:      code,
		}
		// One illustrative definition is enough; stop the walk.
		return fs.SkipAll
	})
	if err != nil {
		return nil, fmt.Errorf("context search in %s failed: %w", projectRoot, err)
	}

	return found, nil
}

// isTestFile recognizes common test-file naming across the supported
// languages; definitions in tests are poor triage context.
func isTestFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "_test.") ||
		strings.HasPrefix(lower, "test_") ||
		strings.Contains(lower, ".test.") ||
		strings.Contains(lower, ".spec.")
}

// readLimited reads at most the configured ceiling from path, appending
// TruncationMarker when the file was larger. This bounds worst-case memory
// and IO per file at the cost of possibly missing definitions late in very
// large files.
func (r *Resolver) readLimited(path string) (string, error) {
	limit := r.MaxFileBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	if info.Size() <= limit {
		data, err := io.ReadAll(f)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	fmt.Fprintf(os.Stderr, "warning: file too large: %s (%d bytes), truncating to %d\n", path, info.Size(), limit)
	data := make([]byte, limit)
	n, err := io.ReadFull(f, data)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(data[:n]) + TruncationMarker, nil
}
