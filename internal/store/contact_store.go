package store

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"blindrelay/internal/domain"
)

const contactsFile = "contacts.json"

// ErrEmptyAlias is returned when saving a contact without an alias.
var ErrEmptyAlias = errors.New("contact alias must not be empty")

// ContactFileStore persists contacts to disk, keyed by alias.
type ContactFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewContactFileStore returns a ContactFileStore rooted at dir.
func NewContactFileStore(dir string) *ContactFileStore {
	return &ContactFileStore{dir: dir}
}

// SaveContact stores or replaces the contact under its alias.
func (s *ContactFileStore) SaveContact(contact domain.Contact) error {
	if contact.Alias == "" {
		return ErrEmptyAlias
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, contactsFile)
	contacts := make(map[domain.Alias]domain.Contact)
	if err := readJSON(path, &contacts); err != nil {
		return err
	}
	contacts[contact.Alias] = contact

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return writeJSON(path, contacts, 0o600)
}

// LoadContact retrieves the contact saved under alias.
func (s *ContactFileStore) LoadContact(alias domain.Alias) (domain.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := make(map[domain.Alias]domain.Contact)
	if err := readJSON(filepath.Join(s.dir, contactsFile), &contacts); err != nil {
		return domain.Contact{}, false, err
	}
	c, ok := contacts[alias]
	return c, ok, nil
}

// ListContacts returns every contact sorted by alias.
func (s *ContactFileStore) ListContacts() ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := make(map[domain.Alias]domain.Contact)
	if err := readJSON(filepath.Join(s.dir, contactsFile), &contacts); err != nil {
		return nil, err
	}
	out := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out, nil
}

// Compile-time assertion that ContactFileStore implements domain.ContactStore.
var _ domain.ContactStore = (*ContactFileStore)(nil)
