package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fulfillment_service/internal/domain"
	"fulfillment_service/pkg/cache"

	"github.com/sirupsen/logrus"
)

const userCacheTTL = 3600 * time.Second

// userModel is the cache payload for users. It is deliberately a separate
// type from domain.User: the cached value is a complete read-model, and any
// field added to one must be consciously added to the other.
type userModel struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

// CachedUserRepository decorates the user store with a cache-aside read
// path. Mutations use the delete-on-write policy: the key is removed and
// the next read repopulates from the store.
type CachedUserRepository struct {
	store domain.UserRepository
	cache cache.Cache
	log   *logrus.Logger
}

func NewCachedUserRepository(store domain.UserRepository, c cache.Cache, logger *logrus.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		store: store,
		cache: c,
		log:   logger,
	}
}

var _ domain.UserRepository = (*CachedUserRepository)(nil)

func (r *CachedUserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	key := userKey(id)

	raw, err := r.cache.Get(ctx, key)
	if err == nil {
		var model userModel
		if jsonErr := json.Unmarshal([]byte(raw), &model); jsonErr == nil {
			r.log.Debugf("Cache: Hit for %s", key)
			return &domain.User{
				ID:        model.ID,
				Username:  model.Username,
				Email:     model.Email,
				FullName:  model.FullName,
				CreatedAt: model.CreatedAt,
				UpdatedAt: model.UpdatedAt,
			}, nil
		}
		r.log.Warnf("Cache: Corrupt payload for %s, falling back to store", key)
	} else if !errors.Is(err, cache.ErrMiss) {
		// Cache failures never fail a business read.
		r.log.Warnf("Cache: Read failed for %s, falling back to store: %v", key, err)
	}

	user, err := r.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.populate(ctx, user)
	return user, nil
}

func (r *CachedUserRepository) populate(ctx context.Context, user *domain.User) {
	model := userModel{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	payload, err := json.Marshal(model)
	if err != nil {
		r.log.Errorf("Cache: Failed to marshal user %d: %v", user.ID, err)
		return
	}
	if err := r.cache.Set(ctx, userKey(user.ID), string(payload), userCacheTTL); err != nil {
		r.log.Warnf("Cache: Failed to populate %s: %v", userKey(user.ID), err)
	}
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id int64) {
	if _, err := r.cache.Delete(ctx, userKey(id)); err != nil {
		r.log.Warnf("Cache: Failed to invalidate %s: %v", userKey(id), err)
	}
}

// CreateUser needs no invalidation: the id is assigned by the store, so no
// cache entry for it can exist yet.
func (r *CachedUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.store.CreateUser(ctx, user)
}

func (r *CachedUserRepository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	user, err := r.store.UpdateUser(ctx, id, update)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return user, nil
}

func (r *CachedUserRepository) DeleteUser(ctx context.Context, id int64) error {
	if err := r.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedUserRepository) GetUsersByFilter(ctx context.Context, count, page int, filter domain.UserFilter) ([]domain.User, error) {
	return r.store.GetUsersByFilter(ctx, count, page, filter)
}

func (r *CachedUserRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.store.CountUsers(ctx)
}
