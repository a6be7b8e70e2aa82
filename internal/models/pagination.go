package models

import "github.com/google/uuid"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type PageRequest struct {
	Limit  int
	Cursor *uuid.UUID
}

// Normalize clamps the limit into [1, MaxPageLimit].
func (p PageRequest) Normalize() PageRequest {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

type PageMeta struct {
	NextCursor *uuid.UUID `json:"nextCursor"`
	HasMore    bool       `json:"hasMore"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// NewPage builds a page; a full page means there may be more rows after the last id.
func NewPage[T any](items []T, limit int, idOf func(T) uuid.UUID) Page[T] {
	if items == nil {
		items = []T{}
	}
	page := Page[T]{Data: items}
	if len(items) > 0 && len(items) == limit {
		next := idOf(items[len(items)-1])
		page.Meta = PageMeta{NextCursor: &next, HasMore: true}
	}
	return page
}
