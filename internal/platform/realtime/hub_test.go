package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub(zap.NewNop())
	ch, cancel := h.Subscribe("user:1", "group:9")
	assert.Equal(t, 1, h.Subscribers("user:1"))

	h.Publish("user:1", "notification", map[string]string{"title": "hi"})
	h.Publish("user:2", "notification", map[string]string{"title": "not mine"})

	var ev Event
	require.NoError(t, json.Unmarshal(<-ch, &ev))
	assert.Equal(t, "user:1", ev.Topic)
	assert.Equal(t, "notification", ev.Type)
	assert.JSONEq(t, `{"title":"hi"}`, string(ev.Data))

	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers("user:1"))
	assert.Equal(t, 0, h.Subscribers("group:9"))
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := NewHub(zap.NewNop())
	ch, cancel := h.Subscribe("group:1")
	defer cancel()

	for i := 0; i < sendBuffer+1; i++ {
		h.Publish("group:1", "message", i)
	}
	assert.Equal(t, 0, h.Subscribers("group:1"))

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestHub_ServeWebsocket(t *testing.T) {
	h := NewHub(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, "user:42")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Subscribers("user:42") == 1 }, time.Second, 10*time.Millisecond)
	h.Publish("user:42", "order_update", map[string]string{"status": "confirmed"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "order_update", ev.Type)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Subscribers("user:42") == 0 }, time.Second, 10*time.Millisecond)
}
