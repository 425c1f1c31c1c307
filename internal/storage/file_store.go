package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore abstracts attachment file persistence.
type FileStore interface {
	// Store writes the payload under a randomized name and returns the
	// path relative to the storage root.
	Store(data []byte, originalName string) (string, error)
	// Delete removes a stored file. Missing files are not an error: the
	// database row is authoritative and the file removal is best-effort.
	Delete(relativePath string) error
}

// DiskStore keeps attachment files on the local filesystem.
type DiskStore struct {
	root string
}

// NewDiskStore creates the store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: dir}
}

// recognizedExtensions is the allow-list for preserving the original
// extension. Anything else is stored without one.
var recognizedExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".pdf": {},
	".txt": {}, ".log": {}, ".csv": {}, ".doc": {}, ".docx": {},
	".xls": {}, ".xlsx": {}, ".zip": {},
}

// Store writes data under a random hex name, keeping the original
// extension when recognized. Randomized names make concurrent uploads
// collision-free and rule out path traversal through client filenames.
func (s *DiskStore) Store(data []byte, originalName string) (string, error) {
	if err := os.MkdirAll(s.root, 0o775); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	if ext := normalizedExtension(originalName); ext != "" {
		name += ext
	}

	if err := os.WriteFile(filepath.Join(s.root, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return name, nil
}

// Delete removes the backing file, tolerating files that are already gone.
func (s *DiskStore) Delete(relativePath string) error {
	// Reject anything that could escape the storage root.
	clean := filepath.Base(relativePath)
	if clean == "." || clean == string(filepath.Separator) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func normalizedExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := recognizedExtensions[ext]; ok {
		return ext
	}
	return ""
}
