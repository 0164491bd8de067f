// Package state persists reading positions per book, keyed by a hash of the
// book's content.
package state

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/metcalfc/pagesync/internal/corpus"
)

const (
	stateFileName = "reading_positions.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// ReadingState stores the position in a single book.
type ReadingState struct {
	Page    int       `json:"page"`
	Offset  int       `json:"offset"`
	Path    string    `json:"path,omitempty"`
	Title   string    `json:"title,omitempty"`
	Updated time.Time `json:"updated"`
}

// Position returns the saved position.
func (s ReadingState) Position() corpus.Position {
	return corpus.Position{Page: corpus.PageID(s.Page), Offset: s.Offset}
}

// Book identifies a book for SetPosition.
type Book struct {
	Hash  string
	Path  string
	Title string
}

// StateStore manages persistent reading state
type StateStore struct {
	path string
	data map[string]ReadingState
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStateStore creates or loads state from XDG_STATE_HOME/pagesync/
func NewStateStore() (*StateStore, error) {
	return Open(getStateDir())
}

// Open creates or loads the state file in dir. A corrupt file is replaced
// on the next save.
func Open(dir string) (*StateStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &StateStore{
		path: filepath.Join(dir, stateFileName),
		data: make(map[string]ReadingState),
		now:  time.Now,
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = make(map[string]ReadingState)
	}
	return store, nil
}

// getStateDir returns XDG_STATE_HOME/pagesync or ~/.local/state/pagesync
func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pagesync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "pagesync")
}

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

// GetPosition returns the saved position for a book and whether one exists.
func (s *StateStore) GetPosition(hash string) (corpus.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.data[hash]
	if !ok {
		return corpus.Position{}, false
	}
	return state.Position(), true
}

// SetPosition saves the position for a book.
func (s *StateStore) SetPosition(b Book, pos corpus.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[b.Hash] = ReadingState{
		Page:    int(pos.Page),
		Offset:  pos.Offset,
		Path:    b.Path,
		Title:   b.Title,
		Updated: s.now().UTC(),
	}
	return s.save()
}

// Recent returns up to n saved books, most recently updated first. n <= 0
// returns all of them.
func (s *StateStore) Recent(n int) []ReadingState {
	s.mu.RLock()
	out := make([]ReadingState, 0, len(s.data))
	for _, st := range s.data {
		out = append(out, st)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b ReadingState) int {
		if c := b.Updated.Compare(a.Updated); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Clear removes saved position for file
func (s *StateStore) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *StateStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

// save writes through a temp file so a crash never leaves a torn file.
func (s *StateStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
