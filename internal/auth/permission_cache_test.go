package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelationStore 记录调用次数的内存关系存储
type fakeRelationStore struct {
	allowed map[string]bool
	checks  int
	writes  int
	deletes int
	err     error
}

func (f *fakeRelationStore) CheckPermission(_ context.Context, userID, relation, objectType, objectID string) (bool, error) {
	f.checks++
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[permissionKey(userID, relation, objectType, objectID)], nil
}

func (f *fakeRelationStore) SetRelation(_ context.Context, userID, relation, objectType, objectID string) error {
	f.writes++
	if f.err != nil {
		return f.err
	}
	if f.allowed == nil {
		f.allowed = make(map[string]bool)
	}
	f.allowed[permissionKey(userID, relation, objectType, objectID)] = true
	return nil
}

func (f *fakeRelationStore) DeleteRelation(_ context.Context, userID, relation, objectType, objectID string) error {
	f.deletes++
	if f.err != nil {
		return f.err
	}
	delete(f.allowed, permissionKey(userID, relation, objectType, objectID))
	return nil
}

// TestPermissionCacheGetSet 测试缓存基本读写
func TestPermissionCacheGetSet(t *testing.T) {
	cache := NewPermissionCache(5 * time.Minute)

	key := permissionKey("u1", "viewer", "process", "p1")
	cache.Set(key, true)

	allowed, found := cache.Get(key)
	assert.True(t, found)
	assert.True(t, allowed)

	_, found = cache.Get("missing-key")
	assert.False(t, found)

	cache.Clear()
	_, found = cache.Get(key)
	assert.False(t, found)
}

// TestPermissionCacheExpiration 测试条目过期
func TestPermissionCacheExpiration(t *testing.T) {
	cache := NewPermissionCache(50 * time.Millisecond)

	key := permissionKey("u1", "viewer", "process", "p1")
	cache.Set(key, true)

	_, found := cache.Get(key)
	assert.True(t, found)

	time.Sleep(80 * time.Millisecond)
	_, found = cache.Get(key)
	assert.False(t, found)
}

// TestCachedClientCheckHitsCache 测试判定结果命中缓存后不再穿透
func TestCachedClientCheckHitsCache(t *testing.T) {
	store := &fakeRelationStore{allowed: map[string]bool{
		permissionKey("u1", "viewer", "process", "p1"): true,
	}}
	cached := NewCachedOpenFGAClient(store, NewPermissionCache(5*time.Minute))
	ctx := context.Background()

	allowed, err := cached.CheckPermission(ctx, "u1", "viewer", "process", "p1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = cached.CheckPermission(ctx, "u1", "viewer", "process", "p1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, store.checks)

	// 拒绝结果同样缓存
	_, err = cached.CheckPermission(ctx, "u2", "viewer", "process", "p1")
	require.NoError(t, err)
	_, err = cached.CheckPermission(ctx, "u2", "viewer", "process", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.checks)
}

// TestCachedClientCheckError 测试底层出错时不写缓存
func TestCachedClientCheckError(t *testing.T) {
	store := &fakeRelationStore{err: assert.AnError}
	cached := NewCachedOpenFGAClient(store, NewPermissionCache(5*time.Minute))

	_, err := cached.CheckPermission(context.Background(), "u1", "viewer", "process", "p1")
	assert.Error(t, err)

	store.err = nil
	_, err = cached.CheckPermission(context.Background(), "u1", "viewer", "process", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.checks)
}

// TestCachedClientWriteInvalidates 测试写关系后缓存失效
func TestCachedClientWriteInvalidates(t *testing.T) {
	store := &fakeRelationStore{allowed: map[string]bool{}}
	cached := NewCachedOpenFGAClient(store, NewPermissionCache(5*time.Minute))
	ctx := context.Background()

	allowed, err := cached.CheckPermission(ctx, "u1", "assignee", "process", "p1")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, cached.SetRelation(ctx, "u1", "assignee", "process", "p1"))

	allowed, err = cached.CheckPermission(ctx, "u1", "assignee", "process", "p1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, store.writes)

	require.NoError(t, cached.DeleteRelation(ctx, "u1", "assignee", "process", "p1"))

	allowed, err = cached.CheckPermission(ctx, "u1", "assignee", "process", "p1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 1, store.deletes)
}
