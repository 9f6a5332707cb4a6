package api

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CSRFConfig CSRF 防护配置
type CSRFConfig struct {
	TokenLength    int           // 随机 token 字节数
	TokenTTL       time.Duration // token 有效期
	HeaderName     string        // 写请求携带 token 的请求头
	CookieName     string        // 下发 token 的 cookie 名
	CookieSecure   bool          // cookie 仅 HTTPS
	CookieSameSite http.SameSite
}

// DefaultCSRFConfig 默认 CSRF 配置
func DefaultCSRFConfig() *CSRFConfig {
	return &CSRFConfig{
		TokenLength:    32,
		TokenTTL:       24 * time.Hour,
		HeaderName:     "X-CSRF-Token",
		CookieName:     "csrf_token",
		CookieSecure:   false,
		CookieSameSite: http.SameSiteStrictMode,
	}
}

// CSRFStore 已签发 token 的内存存储
// token 随机生成且只在签发实例内有效,多实例部署时需要粘性会话
type CSRFStore struct {
	mu      sync.RWMutex
	expires map[string]time.Time
	config  *CSRFConfig
}

// NewCSRFStore 创建 CSRF 存储并启动过期清理
func NewCSRFStore(config *CSRFConfig) *CSRFStore {
	store := &CSRFStore{
		expires: make(map[string]time.Time),
		config:  config,
	}
	go store.sweep()
	return store
}

// GenerateToken 签发一个新 token
func (s *CSRFStore) GenerateToken() (string, error) {
	raw := make([]byte, s.config.TokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(raw)

	s.mu.Lock()
	s.expires[token] = time.Now().Add(s.config.TokenTTL)
	s.mu.Unlock()
	return token, nil
}

// ValidateToken 校验 token,过期的顺带删除
func (s *CSRFStore) ValidateToken(token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	expiry, ok := s.expires[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(expiry) {
		s.mu.Lock()
		delete(s.expires, token)
		s.mu.Unlock()
		return false
	}
	return true
}

// sweep 每小时清理一轮过期 token
func (s *CSRFStore) sweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for token, expiry := range s.expires {
			if now.After(expiry) {
				delete(s.expires, token)
			}
		}
		s.mu.Unlock()
	}
}

// CSRFMiddleware CSRF 防护中间件
// 只校验写请求;token 从请求头取,缺失时回退到 cookie
func CSRFMiddleware(config *CSRFConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultCSRFConfig()
	}
	store := NewCSRFStore(config)

	return func(c *gin.Context) {
		c.Set("csrf_store", store)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		token := c.GetHeader(config.HeaderName)
		if token == "" {
			token, _ = c.Cookie(config.CookieName)
		}
		if !store.ValidateToken(token) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "invalid csrf token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetCSRFToken 签发 token 并通过 cookie 下发
// 路由未挂载 CSRF 中间件时使用独立存储,签发仍然可用
func GetCSRFToken(c *gin.Context) (string, error) {
	store := storeFrom(c)
	token, err := store.GenerateToken()
	if err != nil {
		return "", err
	}

	cfg := store.config
	c.SetCookie(cfg.CookieName, token, int(cfg.TokenTTL.Seconds()), "/", "", cfg.CookieSecure, true)
	return token, nil
}

var fallbackStore struct {
	once  sync.Once
	store *CSRFStore
}

// storeFrom 取请求上下文中的存储,缺失时使用进程级兜底存储
func storeFrom(c *gin.Context) *CSRFStore {
	if v, ok := c.Get("csrf_store"); ok {
		if store, ok := v.(*CSRFStore); ok {
			return store
		}
	}
	fallbackStore.once.Do(func() {
		fallbackStore.store = NewCSRFStore(DefaultCSRFConfig())
	})
	return fallbackStore.store
}
