// Package memory provides an in-process link and access record store.
// It is safe for concurrent use and is meant for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type Store struct {
	mu       sync.RWMutex
	byCode   map[string]*entity.Link
	byID     map[int64]*entity.Link
	accesses map[int64][]entity.AccessRecord
	linkSeq  int64
	recSeq   int64
	now      func() time.Time
}

func New() *Store {
	return &Store{
		byCode:   make(map[string]*entity.Link),
		byID:     make(map[int64]*entity.Link),
		accesses: make(map[int64][]entity.AccessRecord),
		now:      time.Now,
	}
}

func (s *Store) Exists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byCode[code]
	return ok, nil
}

func (s *Store) Insert(_ context.Context, code, targetURL string, ownerID *string) (*entity.Link, error) {
	const op = "adapter.repository.memory.Store.Insert"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[code]; ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrConflict)
	}

	s.linkSeq++
	link := &entity.Link{
		ID:        s.linkSeq,
		Code:      code,
		TargetURL: targetURL,
		OwnerID:   copyString(ownerID),
		CreatedAt: s.now(),
	}
	s.byCode[code] = link
	s.byID[link.ID] = link

	return copyLink(link), nil
}

func (s *Store) Lookup(_ context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.memory.Store.Lookup"

	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}

	return copyLink(link), nil
}

func (s *Store) IncrementAndTouch(_ context.Context, linkID int64) (int64, error) {
	const op = "adapter.repository.memory.Store.IncrementAndTouch"

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[linkID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}

	now := s.now()
	link.ClickCount++
	link.LastAccessedAt = &now

	return link.ClickCount, nil
}

func (s *Store) Append(_ context.Context, rec *entity.AccessRecord) error {
	const op = "adapter.repository.memory.Store.Append"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.LinkID]; !ok {
		return fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}

	s.recSeq++
	rec.ID = s.recSeq
	s.accesses[rec.LinkID] = append(s.accesses[rec.LinkID], *rec)

	return nil
}

// ListByLink returns up to limit records of the link, newest first.
func (s *Store) ListByLink(_ context.Context, linkID int64, limit int) ([]entity.AccessRecord, error) {
	s.mu.RLock()
	recs := make([]entity.AccessRecord, len(s.accesses[linkID]))
	copy(recs, s.accesses[linkID])
	s.mu.RUnlock()

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ObservedAt.Equal(recs[j].ObservedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].ObservedAt.After(recs[j].ObservedAt)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	return recs, nil
}

func copyLink(l *entity.Link) *entity.Link {
	c := *l
	c.OwnerID = copyString(l.OwnerID)
	if l.LastAccessedAt != nil {
		t := *l.LastAccessedAt
		c.LastAccessedAt = &t
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
