package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults
var defaults embed.FS

// PromptStore serves agent prompts from a directory of .txt files that
// users may edit. The directory is seeded with the embedded defaults on
// first use; a prompt file that is missing or unreadable falls back to
// its default. Edited files are picked up on the next Load.
type PromptStore struct {
	dir string

	seed    sync.Once
	seedErr error

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
}

// NewPromptStore returns a store over dir, ~/.newsdesk/prompts when
// empty. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".newsdesk", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Dir is the directory prompts are read from.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named prompt.
func (s *PromptStore) Load(name string) (string, error) {
	s.seed.Do(s.seedDir)

	text, err := s.read(name)
	if err == nil {
		return text, nil
	}
	if def, ok := defaultPrompt(name); ok {
		return def, nil
	}
	return "", fmt.Errorf("load prompt %q: %w", name, err)
}

// read returns the file contents, served from cache while the file's
// modification time is unchanged.
func (s *PromptStore) read(name string) (string, error) {
	if s.seedErr != nil {
		return "", s.seedErr
	}

	p := filepath.Join(s.dir, name+".txt")
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	cached, ok := s.cache[name]
	s.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.text, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	s.mu.Unlock()
	return text, nil
}

// seedDir copies every embedded default that is not already on disk.
func (s *PromptStore) seedDir() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	entries, err := defaults.ReadDir("defaults")
	if err != nil {
		s.seedErr = err
		return
	}
	for _, e := range entries {
		dst := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaults.ReadFile(path.Join("defaults", e.Name()))
		if err != nil {
			s.seedErr = err
			return
		}
		if err := os.WriteFile(dst, data, 0600); err != nil {
			s.seedErr = fmt.Errorf("write default prompt %s: %w", e.Name(), err)
			return
		}
	}
}

func defaultPrompt(name string) (string, bool) {
	data, err := defaults.ReadFile(path.Join("defaults", name+".txt"))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
