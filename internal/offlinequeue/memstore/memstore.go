// Package memstore is an in-process offlinequeue.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"riwa-pos/internal/domain"
	"riwa-pos/internal/offlinequeue"
)

type Store struct {
	mu   sync.Mutex
	subs map[string]domain.QueuedSubmission
}

var _ offlinequeue.Store = (*Store)(nil)

func New() *Store { return &Store{subs: make(map[string]domain.QueuedSubmission)} }

func (s *Store) Put(_ context.Context, sub domain.QueuedSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.subs[sub.IdempotencyKey]; ok {
		sub.CreatedAt = prev.CreatedAt
	}
	s.subs[sub.IdempotencyKey] = sub
	return nil
}

func (s *Store) Get(_ context.Context, key string) (domain.QueuedSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[key]
	if !ok {
		return domain.QueuedSubmission{}, offlinequeue.ErrNotFound
	}
	return sub, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[key]; !ok {
		return offlinequeue.ErrNotFound
	}
	delete(s.subs, key)
	return nil
}

func (s *Store) List(_ context.Context) ([]domain.QueuedSubmission, error) {
	s.mu.Lock()
	out := make([]domain.QueuedSubmission, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].IdempotencyKey < out[j].IdempotencyKey
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
