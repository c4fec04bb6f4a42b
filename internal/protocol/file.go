package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/RowanDark/veil/internal/cipher"
)

// FileStore keeps one JSON document per protocol in a directory. Mappings are
// never written; they are rebuilt from the ID on load.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore opens a store rooted at dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("protocol store path cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create protocols directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Get(ctx context.Context, id string) (Protocol, error) {
	if IsLegacy(id) {
		return Legacy(), nil
	}
	p, err := readProtocolFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Protocol{}, ErrNotFound
		}
		return Protocol{}, err
	}
	if p.ID != id {
		return Protocol{}, ErrNotFound
	}
	return p, nil
}

func (s *FileStore) Put(ctx context.Context, p Protocol) error {
	if err := checkWritable(p.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize protocol: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".protocol-*")
	if err != nil {
		return fmt.Errorf("failed to write protocol file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write protocol file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write protocol file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(p.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write protocol file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkWritable(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete protocol file: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Protocol, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocols directory: %w", err)
	}

	custom := make([]Protocol, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := readProtocolFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if IsLegacy(p.ID) {
			continue
		}
		custom = append(custom, p)
	}
	return withLegacy(custom), nil
}

func readProtocolFile(path string) (Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Protocol{}, err
	}
	var p Protocol
	if err := json.Unmarshal(data, &p); err != nil {
		return Protocol{}, fmt.Errorf("failed to parse protocol %s: %w", filepath.Base(path), err)
	}
	p.Hydrate()
	return p, nil
}

// path maps an ID to its file. The readable prefix is lossy, so the ID hash
// keeps distinct IDs in distinct files.
func (s *FileStore) path(id string) string {
	name := fmt.Sprintf("%s-%014x.json", sanitizeFilename(id), cipher.Cyrb53(id, 0))
	return filepath.Join(s.dir, name)
}

// sanitizeFilename keeps the characters of an ID that are safe in a filename
func sanitizeFilename(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "protocol"
	}
	return b.String()
}
