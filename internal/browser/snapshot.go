package browser

import (
	"sort"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Snapshot is a saved authentication state: the cookies of a browser context.
type Snapshot struct {
	Cookies []playwright.OptionalCookie
	SavedAt time.Time
}

// SnapshotStore keeps session snapshots by name for the whole suite, so a
// fresh page can reuse a login performed by an earlier test.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]Snapshot)}
}

// Save stores cookies under name, replacing any earlier snapshot.
func (s *SnapshotStore) Save(name string, cookies []playwright.Cookie) {
	converted := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		converted = append(converted, toOptionalCookie(c))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[name] = Snapshot{Cookies: converted, SavedAt: time.Now()}
}

// Get returns the snapshot saved under name.
func (s *SnapshotStore) Get(name string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[name]
	return snap, ok
}

// Delete forgets the snapshot saved under name.
func (s *SnapshotStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, name)
}

// Names lists stored snapshot names in sorted order.
func (s *SnapshotStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear forgets every snapshot.
func (s *SnapshotStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[string]Snapshot)
}

func toOptionalCookie(c playwright.Cookie) playwright.OptionalCookie {
	oc := playwright.OptionalCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   playwright.String(c.Domain),
		Path:     playwright.String(c.Path),
		HttpOnly: playwright.Bool(c.HttpOnly),
		Secure:   playwright.Bool(c.Secure),
		SameSite: c.SameSite,
	}
	// Session cookies report -1.
	if c.Expires > 0 {
		oc.Expires = playwright.Float(c.Expires)
	}
	return oc
}
