package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func permissionRouter(checker PermissionChecker, authenticated bool) *gin.Engine {
	router := gin.New()
	if authenticated {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", "u1")
			c.Next()
		})
	}
	router.Use(PermissionMiddleware(checker, "process", "viewer"))
	router.GET("/processes/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

// TestPermissionMiddlewareMissingUser 测试未认证请求被拒
func TestPermissionMiddlewareMissingUser(t *testing.T) {
	router := permissionRouter(&fakeRelationStore{}, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/processes/p1", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestPermissionMiddlewareForbidden 测试无权限请求返回 403
func TestPermissionMiddlewareForbidden(t *testing.T) {
	router := permissionRouter(&fakeRelationStore{}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/processes/p1", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestPermissionMiddlewareAllowed 测试有权限请求放行
func TestPermissionMiddlewareAllowed(t *testing.T) {
	store := &fakeRelationStore{allowed: map[string]bool{
		permissionKey("u1", "viewer", "process", "p1"): true,
	}}
	router := permissionRouter(store, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/processes/p1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestPermissionMiddlewareCheckerError 测试判定出错返回 500
func TestPermissionMiddlewareCheckerError(t *testing.T) {
	router := permissionRouter(&fakeRelationStore{err: assert.AnError}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/processes/p1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "permission check failed")
}

// TestPermissionModel 测试权限模型包含全部对象类型
func TestPermissionModel(t *testing.T) {
	model := GetPermissionModel()
	for _, typ := range []string{"type user", "type workflow", "type process"} {
		assert.True(t, strings.Contains(model, typ), typ)
	}
	assert.Contains(t, model, "define initiator")
	assert.Contains(t, model, "define assignee")
}

// TestKeycloakClaimsHasRole 测试 realm 角色判定
func TestKeycloakClaimsHasRole(t *testing.T) {
	claims := &KeycloakClaims{}
	claims.RealmAccess.Roles = []string{"approver", "auditor"}

	assert.True(t, claims.HasRole("approver"))
	assert.False(t, claims.HasRole("admin"))
}
