// Package filename picks where inbound attachments land on disk.
//
// [Disambiguate] never returns a path that exists at call time, and [Sanitize]
// reduces a sender-supplied name to a single path element. Neither takes a lock:
// two concurrent disambiguations of the same name can pick the same candidate,
// so callers that write concurrently must serialize around them.
package filename

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Fallback replaces names that do not survive sanitizing.
const Fallback = "attachment"

// Disambiguate returns path unchanged if nothing exists there. Otherwise it
// tries parent/stem_1.ext, parent/stem_2.ext, ... and returns the first
// candidate that does not exist.
func Disambiguate(fs afero.Fs, path string) (string, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return path, nil
	}

	dir, stem, ext := Split(path)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// Split breaks path into parent directory, stem and extension (with its dot).
// Only the last extension counts, and a leading dot is part of the stem, so
// "a/b.tar.gz" splits into "a", "b.tar", ".gz" and ".env" into ".", ".env", "".
func Split(path string) (dir, stem, ext string) {
	dir = filepath.Dir(path)
	base := filepath.Base(path)

	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}
	return dir, stem, ext
}

// Sanitize reduces a sender-supplied attachment name to its final path
// element so it cannot escape the attachment directory.
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)

	switch name {
	case "", ".", "..":
		return Fallback
	}
	return name
}
