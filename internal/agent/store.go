package agent

import (
	"fmt"
	"net/http"
	"sync"
)

// NotFoundError indicates the requested agent does not exist.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found", e.Name)
}

// Status implements the HTTP status mapping used by the request handlers.
func (e NotFoundError) Status() (int, string) {
	return http.StatusNotFound, e.Error()
}

// UnavailableError indicates the agent is defined but failed validation.
type UnavailableError struct {
	Name  string
	Cause error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("agent %q is invalid: %v", e.Name, e.Cause)
}

func (e UnavailableError) Unwrap() error {
	return e.Cause
}

// Status implements the HTTP status mapping used by the request handlers.
func (e UnavailableError) Status() (int, string) {
	return http.StatusConflict, e.Error()
}

// Store holds the current agent set and allows it to be swapped atomically
// when configuration is reloaded. Reads vastly outnumber updates.
type Store struct {
	mu  sync.RWMutex
	set Set
}

func NewStore() *Store {
	return &Store{
		set: Set{
			agents:  map[string]Agent{},
			invalid: map[string]error{},
		},
	}
}

// Update replaces the stored set.
func (s *Store) Update(set Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = set
}

// Get retrieves an agent by name. Returns UnavailableError for definitions
// that failed validation and NotFoundError for unknown names.
func (s *Store) Get(name string) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if agent, found := s.set.agents[name]; found {
		return agent, nil
	}

	// valid agents are the common case in a stable configuration; check
	// invalidity second.
	if err, found := s.set.invalid[name]; found {
		return Agent{}, UnavailableError{Name: name, Cause: err}
	}

	return Agent{}, NotFoundError{Name: name}
}

// Names returns the names of all valid agents.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.set.agents))
	for name := range s.set.agents {
		names = append(names, name)
	}
	return names
}
