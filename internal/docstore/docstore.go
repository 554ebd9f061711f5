// Package docstore reads the raw document set and computes its content
// fingerprint. The store never manages acquisition: documents are placed by
// the downloader collaborator and are read-only here.
package docstore

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
)

// Store reads PDF documents from a local directory.
type Store struct {
	dir string
}

// NewStore creates a Store over dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create documents dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the documents directory.
func (s *Store) Dir() string { return s.dir }

// List returns every PDF in the store, sorted by name. The document name is
// the file name without its extension and is the stable identity the whole
// pipeline keys on.
func (s *Store) List() ([]model.DocumentInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents dir: %w", err)
	}

	var docs []model.DocumentInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		docs = append(docs, model.DocumentInfo{
			Name:    strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Path returns the on-disk path for a document name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".pdf")
}

// Fingerprint digests the ordered (name, size, mtime) tuples of the current
// document set. Any addition, removal or mutation changes the digest, which
// is the cache validity key for every persisted artifact.
func Fingerprint(docs []model.DocumentInfo) string {
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "%s:%d:%d:", d.Name, d.Size, d.ModTime)
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(sb.String())))
}
