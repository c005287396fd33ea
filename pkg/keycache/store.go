package keycache

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/btsledger/ledger-bts-go/pkg/utils"
)

// Entry is a public key read from the device with the address it reported.
type Entry struct {
	Path      string          `cbor:"1,keyasint" json:"path"`
	PublicKey utils.HexString `cbor:"2,keyasint" json:"publicKey"`
	Address   string          `cbor:"3,keyasint" json:"address"`
	// Verified is false when the host-computed address did not match.
	Verified  bool  `cbor:"4,keyasint" json:"verified"`
	UpdatedAt int64 `cbor:"5,keyasint" json:"updatedAt"`
}

// Store keeps entries by derivation path in a CBOR file. An empty file
// path keeps them in memory only.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]*Entry
}

func NewStore(storage string) (*Store, error) {
	s := &Store{path: storage, values: map[string]*Entry{}}
	if storage == "" {
		return s, nil
	}

	b, err := os.ReadFile(storage)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}

		if err := os.MkdirAll(filepath.Dir(storage), 0750); err != nil {
			return nil, err
		}

		return s, nil
	}

	if len(b) == 0 {
		return s, nil
	}

	if err := cbor.Unmarshal(b, &s.values); err != nil {
		return nil, errors.Wrap(err, "corrupted key cache")
	}

	if s.values == nil {
		s.values = map[string]*Entry{}
	}

	return s, nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	b, err := cbor.Marshal(s.values)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0640); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}

func (s *Store) Store(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[entry.Path] = entry
	return s.save()
}

func (s *Store) Get(path string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values[path]
}

func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, path)
	return s.save()
}

// List returns the entries ordered by path.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.values))
	for _, e := range s.values {
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries
}
