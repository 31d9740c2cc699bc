// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notification

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/pkg/pagination"
	"github.com/polutek/tingtong/pkg/pointer"
)

// MemoryRepository is an in-process [Repository] used by tests and local runs.
type MemoryRepository struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
	now           func() time.Time
}

// NewMemoryRepository creates an empty store using the wall clock.
func NewMemoryRepository() *MemoryRepository {
	return NewMemoryRepositoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryRepositoryWithClock creates an empty store stamping rows with now.
func NewMemoryRepositoryWithClock(now func() time.Time) *MemoryRepository {
	return &MemoryRepository{notifications: make(map[string]*Notification), now: now}
}

// Create implements [Repository].
func (s *MemoryRepository) Create(_ context.Context, notification *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notifications[notification.ID]; exists {
		return dberr.ErrConflict
	}

	notification.CreatedAt = s.now()
	stored := *notification
	stored.IsRead, stored.ReadAt = false, nil
	s.notifications[stored.ID] = &stored
	return nil
}

// ListByUser implements [Repository].
func (s *MemoryRepository) ListByUser(_ context.Context, userID string, after *pagination.Position, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*Notification
	for _, stored := range s.notifications {
		if stored.UserID != userID {
			continue
		}
		if after != nil && !after.Before(stored.CreatedAt, stored.ID) {
			continue
		}
		owned = append(owned, copyOf(stored))
	}

	slices.SortFunc(owned, func(a, b *Notification) int {
		if order := b.CreatedAt.Compare(a.CreatedAt); order != 0 {
			return order
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

// FindByID implements [Repository].
func (s *MemoryRepository) FindByID(_ context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, found := s.notifications[id]
	if !found {
		return nil, dberr.ErrNotFound
	}
	return copyOf(stored), nil
}

// CountUnread implements [Repository].
func (s *MemoryRepository) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, stored := range s.notifications {
		if stored.UserID == userID && !stored.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead implements [Repository].
func (s *MemoryRepository) MarkRead(_ context.Context, id, userID string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, found := s.notifications[id]
	if !found || stored.UserID != userID {
		return nil, dberr.ErrNotFound
	}

	s.markRead(stored)
	return copyOf(stored), nil
}

// MarkAllRead implements [Repository].
func (s *MemoryRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, stored := range s.notifications {
		if stored.UserID == userID && !stored.IsRead {
			s.markRead(stored)
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryRepository) markRead(stored *Notification) {
	stored.IsRead = true
	if stored.ReadAt == nil {
		now := s.now()
		stored.ReadAt = &now
	}
}

func copyOf(stored *Notification) *Notification {
	out := *stored
	out.ReadAt = pointer.Clone(stored.ReadAt)
	return &out
}
