package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"fulfillment_service/internal/domain"
	pkgcache "fulfillment_service/pkg/cache"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeEntry struct {
	value string
	ttl   time.Duration
}

// fakeCache is an in-memory stand-in for the Redis boundary. failing makes
// every call error, for the fallback tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	failing bool

	gets, sets, deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]fakeEntry)}
}

var errCacheDown = errors.New("cache unavailable")

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failing {
		return "", errCacheDown
	}
	entry, ok := f.entries[key]
	if !ok {
		return "", pkgcache.ErrMiss
	}
	return entry.value, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.failing {
		return errCacheDown
	}
	f.entries[key] = fakeEntry{value: value, ttl: ttl}
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failing {
		return 0, errCacheDown
	}
	if _, ok := f.entries[key]; !ok {
		return 0, nil
	}
	delete(f.entries, key)
	return 1, nil
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errCacheDown
	}
	_, ok := f.entries[key]
	return ok, nil
}

func (f *fakeCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errCacheDown
	}
	entry, ok := f.entries[key]
	if !ok {
		return -2, nil
	}
	return entry.ttl, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	reads int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*domain.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[copied.ID] = &copied
	return &copied, nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	user, ok := f.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "user", ID: id}
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) GetUsersByFilter(ctx context.Context, count, page int, filter domain.UserFilter) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeUserStore) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "user", ID: id}
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return &domain.NotFoundError{Entity: "user", ID: id}
	}
	delete(f.users, id)
	return nil
}

func TestUserCache_MissPopulatesThenHits(t *testing.T) {
	store := newFakeUserStore()
	store.users[1] = &domain.User{ID: 1, Username: "alice", Email: "alice@example.com"}
	c := newFakeCache()
	repo := NewCachedUserRepository(store, c, testLogger())

	user, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, store.reads)

	entry, ok := c.entries["user:1"]
	require.True(t, ok, "miss must populate user:1")
	assert.Equal(t, 3600*time.Second, entry.ttl)

	// Second read is served from the cache without a store hit.
	user, err = repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, store.reads)
}

func TestUserCache_UpdateDeletesKey(t *testing.T) {
	store := newFakeUserStore()
	store.users[1] = &domain.User{ID: 1, Username: "alice"}
	c := newFakeCache()
	repo := NewCachedUserRepository(store, c, testLogger())

	_, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	require.Contains(t, c.entries, "user:1")

	newName := "alicia"
	_, err = repo.UpdateUser(context.Background(), 1, domain.UserUpdate{Username: &newName})
	require.NoError(t, err)
	assert.NotContains(t, c.entries, "user:1", "delete-on-write must remove the key")

	// The next read repopulates from the store with the new value.
	user, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alicia", user.Username)
	assert.Equal(t, 2, store.reads)
}

func TestUserCache_DeleteUserInvalidates(t *testing.T) {
	store := newFakeUserStore()
	store.users[1] = &domain.User{ID: 1, Username: "alice"}
	c := newFakeCache()
	repo := NewCachedUserRepository(store, c, testLogger())

	_, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUser(context.Background(), 1))
	assert.NotContains(t, c.entries, "user:1")

	_, err = repo.GetUserByID(context.Background(), 1)
	assert.True(t, domain.IsNotFound(err))
}

func TestUserCache_FailingCacheFallsBackToStore(t *testing.T) {
	store := newFakeUserStore()
	store.users[1] = &domain.User{ID: 1, Username: "alice"}
	c := newFakeCache()
	c.failing = true
	repo := NewCachedUserRepository(store, c, testLogger())

	user, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err, "a broken cache must never fail a read")
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, store.reads)
}

func TestUserCache_CorruptPayloadFallsBackToStore(t *testing.T) {
	store := newFakeUserStore()
	store.users[1] = &domain.User{ID: 1, Username: "alice"}
	c := newFakeCache()
	c.entries["user:1"] = fakeEntry{value: "{not json"}
	repo := NewCachedUserRepository(store, c, testLogger())

	user, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, store.reads)
}

func TestUserCache_MissingUserIsNotCached(t *testing.T) {
	store := newFakeUserStore()
	c := newFakeCache()
	repo := NewCachedUserRepository(store, c, testLogger())

	_, err := repo.GetUserByID(context.Background(), 99)
	assert.True(t, domain.IsNotFound(err))
	assert.NotContains(t, c.entries, "user:99")
}
