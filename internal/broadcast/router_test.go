package broadcast

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	messages []*Message
	closed   bool
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, v.(*Message))
	return nil
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) received() []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Message(nil), f.messages...)
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestConn(t *testing.T) (*Conn, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	conn := NewConn(transport, slog.Default())
	t.Cleanup(conn.Close)
	return conn, transport
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	router := NewRouter(slog.Default())
	conn1, transport1 := newTestConn(t)
	conn2, transport2 := newTestConn(t)

	router.Subscribe("ROOM1", "conn-1", conn1)
	router.Subscribe("ROOM1", "conn-2", conn2)

	router.Publish("ROOM1", &Message{Type: "chat-message"}, "")

	require.Eventually(t, func() bool {
		return len(transport1.received()) == 1 && len(transport2.received()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPublishExcludesSender(t *testing.T) {
	router := NewRouter(slog.Default())
	sender, senderTransport := newTestConn(t)
	other, otherTransport := newTestConn(t)

	router.Subscribe("ROOM1", "sender", sender)
	router.Subscribe("ROOM1", "other", other)

	router.Publish("ROOM1", &Message{Type: "video-play"}, "sender")

	require.Eventually(t, func() bool {
		return len(otherTransport.received()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, senderTransport.received())
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	router := NewRouter(slog.Default())
	conn, transport := newTestConn(t)
	router.Subscribe("ROOM1", "conn-1", conn)

	types := []string{"user-joined", "video-play", "video-seek", "video-pause", "user-left"}
	for _, typ := range types {
		router.Publish("ROOM1", &Message{Type: typ}, "")
	}

	require.Eventually(t, func() bool {
		return len(transport.received()) == len(types)
	}, time.Second, 5*time.Millisecond)

	got := make([]string, 0, len(types))
	for _, msg := range transport.received() {
		got = append(got, msg.Type)
	}
	assert.Equal(t, types, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	router := NewRouter(slog.Default())
	conn, transport := newTestConn(t)
	router.Subscribe("ROOM1", "conn-1", conn)
	router.Unsubscribe("ROOM1", "conn-1")

	router.Publish("ROOM1", &Message{Type: "chat-message"}, "")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, transport.received())
}

func TestRoomsAreIndependent(t *testing.T) {
	router := NewRouter(slog.Default())
	conn1, transport1 := newTestConn(t)
	conn2, transport2 := newTestConn(t)

	router.Subscribe("ROOM1", "conn-1", conn1)
	router.Subscribe("ROOM2", "conn-2", conn2)

	router.Publish("ROOM1", &Message{Type: "chat-message"}, "")

	require.Eventually(t, func() bool {
		return len(transport1.received()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, transport2.received())
}

func TestSendCloseFlushesPendingMessagesFirst(t *testing.T) {
	conn, transport := newTestConn(t)

	conn.Send(&Message{Type: "user-kicked"})
	conn.SendClose(4001, "kicked")

	require.Eventually(t, transport.isClosed, time.Second, 5*time.Millisecond)
	require.Len(t, transport.received(), 1)
	assert.Equal(t, "user-kicked", transport.received()[0].Type)
}

func TestSendAfterCloseIsNoop(t *testing.T) {
	transport := &fakeTransport{}
	conn := NewConn(transport, slog.Default())
	conn.Close()

	conn.Send(&Message{Type: "chat-message"})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, transport.received())
}
