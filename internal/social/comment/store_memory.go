// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/pkg/pagination"
	"github.com/polutek/tingtong/pkg/pointer"
)

// MemoryRepository is an in-process [Repository] used by tests and local runs.
//
// It also carries the hooks the in-memory vote store needs to check comment
// liveness and write vote counters. Every method returns copies, so callers
// never share state with the store.
type MemoryRepository struct {
	mu       sync.RWMutex
	comments map[string]*Comment
	byEntity map[string][]string // entityID -> every comment id
	byParent map[string][]string // parentID -> direct reply ids
	now      func() time.Time
}

// NewMemoryRepository creates an empty store using the wall clock.
func NewMemoryRepository() *MemoryRepository {
	return NewMemoryRepositoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryRepositoryWithClock creates an empty store stamping rows with now.
func NewMemoryRepositoryWithClock(now func() time.Time) *MemoryRepository {
	return &MemoryRepository{
		comments: make(map[string]*Comment),
		byEntity: make(map[string][]string),
		byParent: make(map[string][]string),
		now:      now,
	}
}

// # Comment Retrieval

// ListByEntity implements [Repository].
func (s *MemoryRepository) ListByEntity(_ context.Context, entityID string) ([]*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.copies(s.byEntity[entityID]), nil
}

// ListRoots implements [Repository].
func (s *MemoryRepository) ListRoots(_ context.Context, entityID string, after *pagination.Position, limit int) ([]*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := slices.DeleteFunc(s.copies(s.byEntity[entityID]), func(c *Comment) bool {
		return !c.IsRoot()
	})
	return keysetPage(roots, after, limit), nil
}

// ListReplies implements [Repository].
func (s *MemoryRepository) ListReplies(_ context.Context, parentID string, after *pagination.Position, limit int) ([]*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return keysetPage(s.copies(s.byParent[parentID]), after, limit), nil
}

// ListDescendants implements [Repository].
func (s *MemoryRepository) ListDescendants(_ context.Context, rootIDs []string) ([]*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var descendants []*Comment
	queue := slices.Clone(rootIDs)
	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		for _, childID := range s.byParent[parentID] {
			descendants = append(descendants, s.copyOf(childID))
			queue = append(queue, childID)
		}
	}
	return descendants, nil
}

// FindByID implements [Repository].
func (s *MemoryRepository) FindByID(_ context.Context, id string) (*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, found := s.comments[id]; !found {
		return nil, dberr.ErrNotFound
	}
	return s.copyOf(id), nil
}

// # Comment Mutation

// Create implements [Repository].
func (s *MemoryRepository) Create(_ context.Context, comment *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.comments[comment.ID]; exists {
		return dberr.ErrConflict
	}

	var parent *Comment
	if comment.ParentID != nil {
		parent = s.comments[*comment.ParentID]
		if parent == nil || parent.DeletedAt != nil || parent.EntityID != comment.EntityID {
			return ErrParentGone
		}
	}

	now := s.now()
	stored := *comment
	stored.CreatedAt, stored.UpdatedAt = now, now
	stored.RepliesCount, stored.UpvotesCount, stored.DownvotesCount = 0, 0, 0
	stored.DeletedAt, stored.IsDeleted = nil, false
	stored.ParentID = pointer.Clone(comment.ParentID)

	s.comments[stored.ID] = &stored
	s.byEntity[stored.EntityID] = append(s.byEntity[stored.EntityID], stored.ID)
	if parent != nil {
		parent.RepliesCount++
		s.byParent[parent.ID] = append(s.byParent[parent.ID], stored.ID)
	}

	comment.CreatedAt, comment.UpdatedAt = now, now
	return nil
}

// UpdateContent implements [Repository].
func (s *MemoryRepository) UpdateContent(_ context.Context, id, content string) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, found := s.comments[id]
	if !found || stored.DeletedAt != nil {
		return nil, dberr.ErrNotFound
	}

	stored.Content = content
	stored.UpdatedAt = s.now()
	return s.copyOf(id), nil
}

// SoftDelete implements [Repository].
func (s *MemoryRepository) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, found := s.comments[id]
	if !found {
		return dberr.ErrNotFound
	}

	now := s.now()
	if stored.DeletedAt == nil {
		stored.DeletedAt = &now
		stored.IsDeleted = true
	}
	stored.UpdatedAt = now
	return nil
}

// # Vote Store Hooks

// EnsureLive returns apperr NOT_FOUND unless the comment exists and is not deleted.
func (s *MemoryRepository) EnsureLive(_ context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, found := s.comments[id]
	if !found || stored.DeletedAt != nil {
		return apperr.NotFound("Comment")
	}
	return nil
}

// SetVoteCounts overwrites the denormalized vote counters of a comment.
func (s *MemoryRepository) SetVoteCounts(_ context.Context, id string, upvotes, downvotes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, found := s.comments[id]
	if !found {
		return dberr.ErrNotFound
	}
	stored.UpvotesCount, stored.DownvotesCount = upvotes, downvotes
	return nil
}

// Insert stores a fully formed comment as-is, bypassing every rule.
//
// It lets tests seed threads with fixed timestamps, dangling parents or
// pre-deleted rows.
func (s *MemoryRepository) Insert(comment Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment.ParentID = pointer.Clone(comment.ParentID)
	comment.IsDeleted = comment.DeletedAt != nil
	s.comments[comment.ID] = &comment
	s.byEntity[comment.EntityID] = append(s.byEntity[comment.EntityID], comment.ID)
	if comment.ParentID != nil {
		s.byParent[*comment.ParentID] = append(s.byParent[*comment.ParentID], comment.ID)
	}
}

// # Helpers

func (s *MemoryRepository) copyOf(id string) *Comment {
	stored := *s.comments[id]
	stored.ParentID = pointer.Clone(stored.ParentID)
	stored.DeletedAt = pointer.Clone(stored.DeletedAt)
	return &stored
}

func (s *MemoryRepository) copies(ids []string) []*Comment {
	out := make([]*Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.copyOf(id))
	}
	return out
}

// keysetPage orders newest first and cuts the page after the position.
func keysetPage(comments []*Comment, after *pagination.Position, limit int) []*Comment {
	slices.SortFunc(comments, func(a, b *Comment) int {
		if order := b.CreatedAt.Compare(a.CreatedAt); order != 0 {
			return order
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	page := make([]*Comment, 0, limit)
	for _, comment := range comments {
		if after != nil && !after.Before(comment.CreatedAt, comment.ID) {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, comment)
	}
	return page
}
