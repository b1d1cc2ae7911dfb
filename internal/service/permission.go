package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/permission"
	"github.com/frankie-agent/frankie/internal/port/cache"
	"github.com/frankie-agent/frankie/internal/port/database"
)

const permCacheKey = "permissions:all"

// PermissionService manages the agent file-path allow-list. The list is
// read-many/write-rare, so reads go through the cache and every write
// invalidates it.
type PermissionService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewPermissionService creates the service. cache may be nil, in which case
// every read hits the store.
func NewPermissionService(store database.Store, c cache.Cache, ttl time.Duration) *PermissionService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PermissionService{store: store, cache: c, ttl: ttl}
}

// Create adds an allow-list entry and invalidates the cache.
func (s *PermissionService) Create(ctx context.Context, req permission.CreateRequest) (*permission.Entry, error) {
	req.PathPattern = permission.Normalize(req.PathPattern)
	if req.PathPattern == "" || req.PathPattern == "." {
		return nil, fmt.Errorf("%w: path_pattern is required", domain.ErrValidation)
	}

	e, err := s.store.CreatePermission(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return e, nil
}

// List returns all allow-list entries.
func (s *PermissionService) List(ctx context.Context) ([]permission.Entry, error) {
	return s.load(ctx)
}

// Delete removes an entry and invalidates the cache.
func (s *PermissionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// IsAllowed reports whether the agent may write the given path.
func (s *PermissionService) IsAllowed(ctx context.Context, path string) (bool, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return permission.Match(entries, path), nil
}

func (s *PermissionService) load(ctx context.Context) ([]permission.Entry, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, permCacheKey); err == nil && ok {
			var entries []permission.Entry
			if err := json.Unmarshal(data, &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, permCacheKey, data, s.ttl); err != nil {
				slog.Debug("permission cache set failed", "error", err)
			}
		}
	}
	return entries, nil
}

func (s *PermissionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, permCacheKey); err != nil {
		slog.Debug("permission cache invalidate failed", "error", err)
	}
}
