package collection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/bandstand/internal/band"
)

var (
	// ErrNotFound is returned when an id or index names no element.
	ErrNotFound = errors.New("no such element")
	// ErrEmpty is returned by operations that need at least one element.
	ErrEmpty = errors.New("collection is empty")
)

// Kind is the collection type reported by Info.
const Kind = "ordered list"

// Loader supplies the full record set on Reload. The persistence gateway
// implements it.
type Loader interface {
	LoadAll(ctx context.Context) ([]band.Band, error)
}

// Group is one label together with the bands signed to it.
type Group struct {
	Label band.Label
	Bands []band.Band
}

// Count is the number of bands in the group. Groups are never empty.
func (g Group) Count() int { return len(g.Bands) }

// Store is the authoritative in-memory, ordered set of bands of one server
// process. Ids are unique within a Store at all times.
//
// All methods are safe for concurrent use. Mutations take the write lock;
// queries take the read lock and return copies, so callers never observe a
// band that is being replaced.
type Store struct {
	mu        sync.RWMutex
	bands     []band.Band
	lastID    int64
	createdAt time.Time
}

// New creates an empty store stamped with the current time.
func New() *Store {
	return &Store{createdAt: time.Now()}
}

// CreatedAt returns the time the store was created.
func (s *Store) CreatedAt() time.Time {
	return s.createdAt
}

// Len returns the number of bands.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bands)
}

// Add validates b and appends it. If b.ID is not positive or collides with a
// stored band, b gets the next free id from the store's counter. The stored
// band is returned.
func (s *Store) Add(b band.Band) (band.Band, error) {
	if err := b.Validate(); err != nil {
		return band.Band{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(b), nil
}

func (s *Store) insertLocked(b band.Band) band.Band {
	if b.ID <= 0 || s.indexLocked(b.ID) >= 0 {
		for {
			s.lastID++
			if s.indexLocked(s.lastID) < 0 {
				break
			}
		}
		b.ID = s.lastID
	}
	if b.ID > s.lastID {
		s.lastID = b.ID
	}
	s.bands = append(s.bands, b)
	return b
}

func (s *Store) indexLocked(id int64) int {
	return slices.IndexFunc(s.bands, func(b band.Band) bool { return b.ID == id })
}

// Get returns the band with the given id.
func (s *Store) Get(id int64) (band.Band, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return band.Band{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.bands[i], nil
}

// At returns the band at position i of the current ordering.
func (s *Store) At(i int) (band.Band, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.bands) {
		return band.Band{}, fmt.Errorf("%w: index %d", ErrNotFound, i)
	}
	return s.bands[i], nil
}

// FirstID returns the id of the first band, the one RemoveFirst removes.
func (s *Store) FirstID() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.bands) == 0 {
		return 0, ErrEmpty
	}
	return s.bands[0].ID, nil
}

// RemoveByID removes the band with the given id.
func (s *Store) RemoveByID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.bands = slices.Delete(s.bands, i, i+1)
	return nil
}

// RemoveAt removes the band at position i.
func (s *Store) RemoveAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.bands) {
		return fmt.Errorf("%w: index %d", ErrNotFound, i)
	}
	s.bands = slices.Delete(s.bands, i, i+1)
	return nil
}

// RemoveFirst removes and returns the first band.
func (s *Store) RemoveFirst() (band.Band, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bands) == 0 {
		return band.Band{}, ErrEmpty
	}
	first := s.bands[0]
	s.bands = slices.Delete(s.bands, 0, 1)
	return first, nil
}

// RemoveMany removes every band whose id is in ids and returns how many were
// removed. Unknown ids are ignored.
func (s *Store) RemoveMany(ids []int64) int {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.bands)
	s.bands = slices.DeleteFunc(s.bands, func(b band.Band) bool {
		_, ok := set[b.ID]
		return ok
	})
	return before - len(s.bands)
}

// UpdateByID replaces the band with the given id by b. The replacement keeps
// the id and is moved to the end of the ordering.
func (s *Store) UpdateByID(id int64, b band.Band) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	b.ID = id
	s.bands = append(slices.Delete(s.bands, i, i+1), b)
	return nil
}

// OwnedBy returns the ids of the bands owned by login, in store order.
func (s *Store) OwnedBy(login string) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, b := range s.bands {
		if b.Owner == login {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Snapshot returns a copy of all bands in store order.
func (s *Store) Snapshot() []band.Band {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.bands)
}

func (s *Store) nonEmptySnapshot() ([]band.Band, error) {
	bands := s.Snapshot()
	if len(bands) == 0 {
		return nil, ErrEmpty
	}
	return bands, nil
}

// GroupByLabel groups the bands by label. Groups are ordered by label name,
// then band count, then sales; bands keep their store order inside a group.
func (s *Store) GroupByLabel() ([]Group, error) {
	bands, err := s.nonEmptySnapshot()
	if err != nil {
		return nil, err
	}
	index := make(map[band.Label]int)
	var groups []Group
	for _, b := range bands {
		i, ok := index[b.Label]
		if !ok {
			i = len(groups)
			index[b.Label] = i
			groups = append(groups, Group{Label: b.Label})
		}
		groups[i].Bands = append(groups[i].Bands, b)
	}
	slices.SortFunc(groups, func(a, b Group) int {
		if c := strings.Compare(a.Label.Name, b.Label.Name); c != 0 {
			return c
		}
		if a.Label.Bands != b.Label.Bands {
			if a.Label.Bands < b.Label.Bands {
				return -1
			}
			return 1
		}
		switch {
		case a.Label.Sales < b.Label.Sales:
			return -1
		case a.Label.Sales > b.Label.Sales:
			return 1
		}
		return 0
	})
	return groups, nil
}

// SortedAscending returns the bands in natural order.
func (s *Store) SortedAscending() ([]band.Band, error) {
	bands, err := s.nonEmptySnapshot()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(bands, band.Compare)
	return bands, nil
}

// SortedDescending returns the bands in reverse natural order.
func (s *Store) SortedDescending() ([]band.Band, error) {
	bands, err := s.nonEmptySnapshot()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(bands, func(a, b band.Band) int { return band.Compare(b, a) })
	return bands, nil
}

// LabelNames returns the label name of every band in ascending order. Bands
// without a label name sort last and are reported as empty strings.
func (s *Store) LabelNames() ([]string, error) {
	bands, err := s.nonEmptySnapshot()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = b.Label.Name
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == "":
			return 1
		case b == "":
			return -1
		}
		return strings.Compare(a, b)
	})
	return names, nil
}

// Shuffle randomly permutes the order of the bands.
func (s *Store) Shuffle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bands) == 0 {
		return ErrEmpty
	}
	rand.Shuffle(len(s.bands), func(i, j int) {
		s.bands[i], s.bands[j] = s.bands[j], s.bands[i]
	})
	return nil
}

// Reload replaces the whole content of the store with what the loader
// reports. Bands that fail validation are skipped. On a loader error the
// store is left untouched. It returns the number of bands loaded.
func (s *Store) Reload(ctx context.Context, loader Loader) (int, error) {
	loaded, err := loader.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reload collection: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bands = make([]band.Band, 0, len(loaded))
	for _, b := range loaded {
		if b.Validate() != nil {
			continue
		}
		s.insertLocked(b)
	}
	return len(s.bands), nil
}
