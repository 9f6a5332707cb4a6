package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PermissionCache 判定结果的 TTL 缓存,key 为 user/relation/object 三元组
type PermissionCache struct {
	mu      sync.RWMutex
	entries map[string]permissionEntry
	ttl     time.Duration
}

type permissionEntry struct {
	allowed   bool
	expiresAt time.Time
}

// NewPermissionCache 创建权限缓存
func NewPermissionCache(ttl time.Duration) *PermissionCache {
	return &PermissionCache{
		entries: make(map[string]permissionEntry),
		ttl:     ttl,
	}
}

// Get 返回缓存的判定结果,过期条目当作未命中并顺手删除
func (c *PermissionCache) Get(key string) (bool, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, false
	}
	return entry.allowed, true
}

// Set 写入判定结果
func (c *PermissionCache) Set(key string, allowed bool) {
	c.mu.Lock()
	c.entries[key] = permissionEntry{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate 删除单个条目
func (c *PermissionCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear 清空缓存
func (c *PermissionCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]permissionEntry)
	c.mu.Unlock()
}

// permissionKey 三元组的缓存 key
func permissionKey(userID, relation, objectType, objectID string) string {
	return strings.Join([]string{"user", userID, relation, objectType, objectID}, ":")
}

// CachedOpenFGAClient 在 RelationStore 之上叠加判定缓存,写操作会使对应条目失效
type CachedOpenFGAClient struct {
	store RelationStore
	cache *PermissionCache
}

// NewCachedOpenFGAClient 创建带缓存的客户端
func NewCachedOpenFGAClient(store RelationStore, cache *PermissionCache) *CachedOpenFGAClient {
	return &CachedOpenFGAClient{store: store, cache: cache}
}

// CheckPermission 命中缓存直接返回,未命中时穿透到底层并回填
func (c *CachedOpenFGAClient) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	key := permissionKey(userID, relation, objectType, objectID)
	if allowed, found := c.cache.Get(key); found {
		return allowed, nil
	}

	allowed, err := c.store.CheckPermission(ctx, userID, relation, objectType, objectID)
	if err != nil {
		return false, err
	}
	c.cache.Set(key, allowed)
	return allowed, nil
}

// SetRelation 写入关系并失效对应缓存条目
func (c *CachedOpenFGAClient) SetRelation(ctx context.Context, userID, relation, objectType, objectID string) error {
	if err := c.store.SetRelation(ctx, userID, relation, objectType, objectID); err != nil {
		return err
	}
	c.cache.Invalidate(permissionKey(userID, relation, objectType, objectID))
	return nil
}

// DeleteRelation 删除关系并失效对应缓存条目
func (c *CachedOpenFGAClient) DeleteRelation(ctx context.Context, userID, relation, objectType, objectID string) error {
	if err := c.store.DeleteRelation(ctx, userID, relation, objectType, objectID); err != nil {
		return err
	}
	c.cache.Invalidate(permissionKey(userID, relation, objectType, objectID))
	return nil
}
