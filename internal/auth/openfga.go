package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// PermissionChecker 权限判定
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error)
}

// RelationStore 权限关系的读写
type RelationStore interface {
	PermissionChecker
	SetRelation(ctx context.Context, userID, relation, objectType, objectID string) error
	DeleteRelation(ctx context.Context, userID, relation, objectType, objectID string) error
}

// OpenFGAClient OpenFGA 客户端
type OpenFGAClient struct {
	client  *client.OpenFgaClient
	storeID string
	modelID string
}

// NewOpenFGAClient 创建 OpenFGA 客户端
func NewOpenFGAClient(apiURL string, storeID string, modelID string) (*OpenFGAClient, error) {
	fgaClient, err := client.NewSdkClient(&client.ClientConfiguration{
		ApiUrl:  apiURL,
		StoreId: storeID,
		Credentials: &credentials.Credentials{
			Method: credentials.CredentialsMethodNone,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenFGA client: %w", err)
	}

	return &OpenFGAClient{
		client:  fgaClient,
		storeID: storeID,
		modelID: modelID,
	}, nil
}

// NewOpenFGAClientWithRetry 指数退避重连,首次 Read 成功才算就绪
func NewOpenFGAClientWithRetry(apiURL string, storeID string, modelID string, maxRetries int, retryInterval time.Duration) (*OpenFGAClient, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}

		fgaClient, err := NewOpenFGAClient(apiURL, storeID, modelID)
		if err != nil {
			lastErr = err
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err = fgaClient.client.Read(ctx).Execute()
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return fgaClient, nil
	}
	return nil, fmt.Errorf("failed to create OpenFGA client after %d retries: %w", maxRetries, lastErr)
}

// userRef / objectRef 拼装 OpenFGA tuple 引用
func userRef(userID string) string {
	return "user:" + userID
}

func objectRef(objectType, objectID string) string {
	return objectType + ":" + objectID
}

// CheckPermission 判定 user 对 object 是否具有 relation
func (c *OpenFGAClient) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	resp, err := c.client.Check(ctx).Body(client.ClientCheckRequest{
		User:     userRef(userID),
		Relation: relation,
		Object:   objectRef(objectType, objectID),
	}).Execute()
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return resp.GetAllowed(), nil
}

// SetRelation 写入权限关系
func (c *OpenFGAClient) SetRelation(ctx context.Context, userID, relation, objectType, objectID string) error {
	_, err := c.client.Write(ctx).Body(client.ClientWriteRequest{
		Writes: []client.ClientTupleKey{{
			User:     userRef(userID),
			Relation: relation,
			Object:   objectRef(objectType, objectID),
		}},
	}).Execute()
	if err != nil {
		return fmt.Errorf("failed to set relation: %w", err)
	}
	return nil
}

// DeleteRelation 删除权限关系
func (c *OpenFGAClient) DeleteRelation(ctx context.Context, userID, relation, objectType, objectID string) error {
	_, err := c.client.Write(ctx).Body(client.ClientWriteRequest{
		Deletes: []client.ClientTupleKeyWithoutCondition{{
			User:     userRef(userID),
			Relation: relation,
			Object:   objectRef(objectType, objectID),
		}},
	}).Execute()
	if err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}
	return nil
}

// CheckHealth 以一次限时 Read 探测连通性
func (c *OpenFGAClient) CheckHealth(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.client.Read(ctx).Execute()
	return err == nil
}

// Reconnect 重建底层连接,调用方负责并发控制
func (c *OpenFGAClient) Reconnect(apiURL string, storeID string, modelID string) error {
	next, err := NewOpenFGAClient(apiURL, storeID, modelID)
	if err != nil {
		return fmt.Errorf("failed to reconnect OpenFGA: %w", err)
	}
	c.client = next.client
	c.storeID = next.storeID
	c.modelID = next.modelID
	return nil
}

// PermissionMiddleware 基于路径参数 id 的对象级权限检查
func PermissionMiddleware(checker PermissionChecker, objectType, relation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "unauthorized",
			})
			return
		}

		objectID := c.Param("id")
		if objectID == "" {
			objectID = c.Query("id")
		}

		allowed, err := checker.CheckPermission(c.Request.Context(), userID.(string), relation, objectType, objectID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "permission check failed",
				"detail":  err.Error(),
			})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    http.StatusForbidden,
				"message": "forbidden",
			})
			return
		}
		c.Next()
	}
}
