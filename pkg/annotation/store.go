package annotation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an id is absent from the store.
	ErrNotFound = errors.New("annotation: not found")
	// ErrDuplicateID rejects adding a record whose id is already present.
	ErrDuplicateID = errors.New("annotation: duplicate id")
	// ErrConfidenceRange rejects confidence values outside [0,1].
	ErrConfidenceRange = errors.New("annotation: confidence out of range")
)

// Annotation is one labeled geometry record.
type Annotation struct {
	ID         string
	Geometry   Geometry
	Label      string
	Confidence *float64
	Visible    bool
}

// Store is the ordered annotation collection. Insertion order is
// significant: it defines draw order and hit-test priority, and survives
// every mutation. All methods are synchronous and single-writer; a
// multi-threaded host must serialize mutations externally.
type Store struct {
	order []string
	byID  map[string]*Annotation
}

// NewStore creates an empty collection.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Annotation)}
}

// Insert validates the geometry, assigns a fresh id and appends the
// annotation to the end of the insertion order. New annotations are
// visible.
func (s *Store) Insert(g Geometry, label string) (string, error) {
	return s.Add(Annotation{Geometry: g, Label: label, Visible: true})
}

// Add admits a fully-specified record, assigning an id when none is set.
// The store is left unchanged on any validation failure.
func (s *Store) Add(a Annotation) (string, error) {
	if a.Geometry == nil {
		return "", fmt.Errorf("nil geometry: %w", ErrDegenerateGeometry)
	}
	if err := a.Geometry.Validate(); err != nil {
		return "", err
	}
	if a.Confidence != nil && (*a.Confidence < 0 || *a.Confidence > 1) {
		return "", fmt.Errorf("confidence %v: %w", *a.Confidence, ErrConfidenceRange)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if _, exists := s.byID[a.ID]; exists {
		return "", fmt.Errorf("id %s: %w", a.ID, ErrDuplicateID)
	}

	s.byID[a.ID] = &a
	s.order = append(s.order, a.ID)
	return a.ID, nil
}

// Update holds the optional fields of a partial update; nil fields are
// left as they are.
type Update struct {
	Geometry   Geometry
	Label      *string
	Confidence *float64
	Visible    *bool
}

// Update merges the non-nil fields of u into the annotation. The
// insertion order does not change. The record is untouched when any field
// fails validation.
func (s *Store) Update(id string, u Update) error {
	a, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("id %s: %w", id, ErrNotFound)
	}

	if u.Geometry != nil {
		if err := u.Geometry.Validate(); err != nil {
			return err
		}
	}
	if u.Confidence != nil && (*u.Confidence < 0 || *u.Confidence > 1) {
		return fmt.Errorf("confidence %v: %w", *u.Confidence, ErrConfidenceRange)
	}

	if u.Geometry != nil {
		a.Geometry = u.Geometry
	}
	if u.Label != nil {
		a.Label = *u.Label
	}
	if u.Confidence != nil {
		c := *u.Confidence
		a.Confidence = &c
	}
	if u.Visible != nil {
		a.Visible = *u.Visible
	}
	return nil
}

// Remove deletes the annotation, preserving the relative order of the
// remaining entries.
func (s *Store) Remove(id string) error {
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetVisibility toggles whether the annotation renders and hit-tests.
func (s *Store) SetVisibility(id string, visible bool) error {
	a, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	a.Visible = visible
	return nil
}

// Get returns a copy of the annotation.
func (s *Store) Get(id string) (Annotation, bool) {
	a, ok := s.byID[id]
	if !ok {
		return Annotation{}, false
	}
	return *a, true
}

// List returns the annotations in insertion order. The returned slice
// holds copies; mutating it does not affect the store.
func (s *Store) List() []Annotation {
	out := make([]Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	return len(s.order)
}
