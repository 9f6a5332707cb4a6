package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/engine"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/websocket"
)

// TestDispatcherPushesToRecipient 测试事实被推送到接收人的在线连接
func TestDispatcherPushesToRecipient(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	client := websocket.NewClient("c1", "u1", hub, nil)
	hub.Register <- client
	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	d := NewDispatcher(hub, 1, logrus.New())
	defer d.Stop()

	d.Dispatch([]engine.Fact{{
		Kind:        model.NotificationProcessForwarded,
		RecipientID: "u1",
		ProcessID:   "p1",
		Metadata:    model.Metadata{"step": float64(2)},
	}})

	select {
	case raw := <-client.Send:
		var msg struct {
			Kind      string                 `json:"kind"`
			ProcessID string                 `json:"process_id"`
			Metadata  map[string]interface{} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "PROCESS_FORWARDED", msg.Kind)
		assert.Equal(t, "p1", msg.ProcessID)
		assert.Equal(t, float64(2), msg.Metadata["step"])
	case <-time.After(time.Second):
		t.Fatal("expected pushed notification")
	}
}

// TestDispatcherOfflineRecipient 测试接收人离线时事实被静默丢弃
func TestDispatcherOfflineRecipient(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	d := NewDispatcher(hub, 1, logrus.New())
	defer d.Stop()

	// 没有在线连接,推送不应崩溃或阻塞
	d.Dispatch([]engine.Fact{{
		Kind:        model.NotificationQuery,
		RecipientID: "offline-user",
		ProcessID:   "p1",
	}})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.GetClientCount())
}
