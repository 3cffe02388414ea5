package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-ai/jsforge/shared/events"
)

func TestRelayForwardsResultsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := newTestGateway(t, stubProvider{})
	go g.hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(g.hub.ServeWS))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return g.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	queued, err := events.Wrap(events.CodeRequested, events.CodeRequestedPayload{RequestID: "r1", Mode: "generate"})
	require.NoError(t, err)
	done, err := events.Wrap(events.CodeGenerated, events.CodeResultPayload{RequestID: "r1", Mode: "generate", Text: "const a = 1;"})
	require.NoError(t, err)

	g.relay(queued)
	g.relay([]byte("not an envelope"))
	g.relay(done)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := events.UnwrapEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, events.CodeGenerated, env.RoutingKey)
}
