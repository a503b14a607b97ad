// Package jobs keeps job descriptions in memory with monotonically
// assigned IDs.
package jobs

import (
	"sync"
	"time"

	"resumerag/internal/domain"
)

// Store is a concurrency-safe in-memory job store.
type Store struct {
	mu     sync.RWMutex
	nextID int
	byID   map[int]domain.Job
}

// NewStore returns an empty store. The first job gets ID 1.
func NewStore() *Store {
	return &Store{nextID: 1, byID: make(map[int]domain.Job)}
}

// Create stores a description and returns the new job.
func (s *Store) Create(description string) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := domain.Job{
		ID:          s.nextID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	s.nextID++
	s.byID[job.ID] = job
	return job
}

// Get returns the job with the given ID, or domain.ErrJobNotFound.
func (s *Store) Get(id int) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byID[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}
