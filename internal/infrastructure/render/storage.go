package render

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^0-9A-Za-z._-]+`)

// FilenameForURN derives the artifact filename for a canonical
// identifier. The mapping is deterministic so repeated exports of the
// same identifier address the same file. Sanitizing folds every
// separator to "_", which can merge distinct identifiers, so a short
// digest of the unsanitized identifier keeps the mapping injective.
func FilenameForURN(urn string) string {
	name := unsafeFilenameChars.ReplaceAllString(urn, "_")
	name = strings.Trim(name, "_")
	sum := sha256.Sum256([]byte(urn))
	return name + "-" + hex.EncodeToString(sum[:4]) + ".pdf"
}

// Storage addresses rendered artifacts under a single download
// directory.
type Storage struct {
	dir string
}

// NewStorage creates a Storage rooted at dir, creating it if needed.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the download directory.
func (s *Storage) Dir() string {
	return s.dir
}

// PathFor returns the artifact path for a canonical identifier.
func (s *Storage) PathFor(urn string) string {
	return filepath.Join(s.dir, FilenameForURN(urn))
}

// Exists reports whether an artifact already exists for urn, returning
// its path when it does. An existing file makes a re-render redundant.
func (s *Storage) Exists(urn string) (string, bool) {
	path := s.PathFor(urn)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Write stores rendered bytes at the artifact path for urn. The write
// goes through a temp file and rename so a concurrent reader never
// observes a torn artifact.
func (s *Storage) Write(urn string, data []byte) (string, error) {
	path := s.PathFor(urn)
	tmp, err := os.CreateTemp(s.dir, ".render-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return path, nil
}
