package binder

import (
	"fmt"
	"reflect"
	"sync"
)

// Manifest stores registrations. Entries live in an append-only arena; the
// index maps point into it so that lookups are O(1) and key order follows
// first insertion. A manifest becomes read-only once its registrar builds a
// resolver.
type Manifest struct {
	mu              sync.RWMutex
	entries         []Registration
	rootIndex       map[reflect.Type]int
	rootOrder       []reflect.Type
	collectionIndex map[reflect.Type][]int
	collectionOrder []reflect.Type
	frozen          bool
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		rootIndex:       make(map[reflect.Type]int),
		collectionIndex: make(map[reflect.Type][]int),
	}
}

// AddRootRegistration adds the single root registration for info's service.
func (m *Manifest) AddRootRegistration(info Registration) (*Manifest, error) {
	if info.IsZero() {
		return m, errInvalidArgument("registration", "zero value")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return m, ErrRegistrationClosed
	}

	st := info.ServiceType()
	if _, exists := m.rootIndex[st]; exists {
		return m, ErrDuplicate(st)
	}

	m.entries = append(m.entries, info)
	m.rootIndex[st] = len(m.entries) - 1
	m.rootOrder = append(m.rootOrder, st)

	return m, nil
}

// AddCollectionRegistrations appends all infos, or none if any is invalid.
func (m *Manifest) AddCollectionRegistrations(infos ...Registration) error {
	for i, info := range infos {
		if info.IsZero() {
			return errInvalidArgument(fmt.Sprintf("registration %d", i), "zero value")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return ErrRegistrationClosed
	}

	for _, info := range infos {
		st := info.ServiceType()
		if _, seen := m.collectionIndex[st]; !seen {
			m.collectionOrder = append(m.collectionOrder, st)
		}
		m.entries = append(m.entries, info)
		m.collectionIndex[st] = append(m.collectionIndex[st], len(m.entries)-1)
	}

	return nil
}

// RootRegistrationFor returns the root registration of serviceType.
func (m *Manifest) RootRegistrationFor(serviceType reflect.Type) (Registration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.rootIndex[serviceType]
	if !ok {
		return Registration{}, false
	}
	return m.entries[i], true
}

// CollectionRegistrationsFor returns the collection registrations of
// serviceType in insertion order. ok is false when there are none, which
// callers must distinguish from an empty resolved collection.
func (m *Manifest) CollectionRegistrationsFor(serviceType reflect.Type) ([]Registration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.collectionIndex[serviceType]
	if !ok {
		return nil, false
	}
	out := make([]Registration, len(idx))
	for i, pos := range idx {
		out[i] = m.entries[pos]
	}
	return out, true
}

// RootServices returns the root service types in first-insertion order.
func (m *Manifest) RootServices() []reflect.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]reflect.Type(nil), m.rootOrder...)
}

// CollectionServices returns the collection service types in first-insertion order.
func (m *Manifest) CollectionServices() []reflect.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]reflect.Type(nil), m.collectionOrder...)
}

// Len returns the total number of registrations.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IsFrozen reports whether the manifest rejects further registrations.
func (m *Manifest) IsFrozen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frozen
}

func (m *Manifest) freeze() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}

// each visits roots then collections, in insertion order.
func (m *Manifest) each(fn func(info Registration, collection bool) error) error {
	for _, st := range m.RootServices() {
		info, _ := m.RootRegistrationFor(st)
		if err := fn(info, false); err != nil {
			return err
		}
	}
	for _, st := range m.CollectionServices() {
		infos, _ := m.CollectionRegistrationsFor(st)
		for _, info := range infos {
			if err := fn(info, true); err != nil {
				return err
			}
		}
	}
	return nil
}
