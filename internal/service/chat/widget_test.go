package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/coursehub/internal/model/chat"
	"github.com/zhouzirui/coursehub/internal/transport/ws"
)

type recordingArchiver struct {
	mu    sync.Mutex
	err   error
	rooms []string
	saved [][]chat.Message
}

func (a *recordingArchiver) Archive(_ context.Context, roomID string, messages []chat.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rooms = append(a.rooms, roomID)
	a.saved = append(a.saved, messages)
	return a.err
}

func TestWidgetOpenReusesLiveSession(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWidget("room1", dialer)
	t.Cleanup(func() { _ = w.Dismiss(context.Background()) })

	first := w.Open(context.Background())
	waitState(t, first, chat.StateOpen)
	second := w.Open(context.Background())

	assert.Same(t, first, second)
	assert.Same(t, first, w.Current())
	assert.Equal(t, 1, dialer.dials())
}

func TestWidgetOpenAfterDropStartsFresh(t *testing.T) {
	dialer := &fakeDialer{}
	w := NewWidget("room1", dialer)
	t.Cleanup(func() { _ = w.Dismiss(context.Background()) })

	first := w.Open(context.Background())
	waitState(t, first, chat.StateOpen)
	first.Send("hello")
	dialer.conn(0).fail(errors.New("network down"))
	waitState(t, first, chat.StateClosedWithError)

	second := w.Open(context.Background())
	require.NotSame(t, first, second)
	waitState(t, second, chat.StateOpen)

	assert.Empty(t, second.Messages())
	assert.Len(t, first.Messages(), 1)
	assert.Equal(t, 2, dialer.dials())
	assert.Equal(t, []string{"room1", "room1"}, dialer.rooms)
}

func TestWidgetDismissArchivesTranscript(t *testing.T) {
	dialer := &fakeDialer{}
	archiver := &recordingArchiver{}
	w := NewWidget("room1", dialer, WithArchiver(archiver))

	s := w.Open(context.Background())
	waitState(t, s, chat.StateOpen)
	s.Send("What is recursion?")
	dialer.conn(0).deliver("Recursion is...")
	waitMessages(t, s, 2)

	require.NoError(t, w.Dismiss(context.Background()))

	assert.Nil(t, w.Current())
	assert.Equal(t, chat.StateClosed, s.State())
	assert.True(t, dialer.conn(0).isClosed())
	require.Len(t, archiver.saved, 1)
	assert.Equal(t, []string{"room1"}, archiver.rooms)
	assert.Equal(t, []entry{
		{chat.RoleUser, "What is recursion?"},
		{chat.RoleAssistant, "Recursion is..."},
	}, entries(archiver.saved[0]))
}

func TestWidgetDismissSkipsEmptyTranscript(t *testing.T) {
	archiver := &recordingArchiver{}
	w := NewWidget("room1", &fakeDialer{}, WithArchiver(archiver))

	s := w.Open(context.Background())
	waitState(t, s, chat.StateOpen)
	require.NoError(t, w.Dismiss(context.Background()))

	assert.Empty(t, archiver.saved)
}

func TestWidgetDismissReportsArchiveError(t *testing.T) {
	dialer := &fakeDialer{}
	archiver := &recordingArchiver{err: errors.New("redis unavailable")}
	w := NewWidget("room1", dialer, WithArchiver(archiver))

	s := w.Open(context.Background())
	waitState(t, s, chat.StateOpen)
	s.Send("hi")

	err := w.Dismiss(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Nil(t, w.Current())
}

func TestWidgetDismissWithoutSession(t *testing.T) {
	w := NewWidget("room1", &fakeDialer{}, WithArchiver(&recordingArchiver{}))
	assert.NoError(t, w.Dismiss(context.Background()))
	assert.NoError(t, w.Dismiss(context.Background()))
	assert.Nil(t, w.Current())
}

func TestWidgetPassesSessionOptions(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewWidget("room1", &fakeDialer{}, WithSessionOptions(WithClock(func() time.Time { return now })))
	t.Cleanup(func() { _ = w.Dismiss(context.Background()) })

	s := w.Open(context.Background())
	waitState(t, s, chat.StateOpen)
	s.Send("hi")

	assert.Equal(t, now, s.Messages()[0].CreatedAt)
}

// newTutorServer stands in for the backend chat endpoint: it answers every
// question with a canned reply and drops the connection on "bye".
func newTutorServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	r := chi.NewRouter()
	r.Get("/api/v1/ws/chat/{roomID}", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch string(data) {
			case "What is recursion?":
				_ = conn.WriteMessage(websocket.TextMessage, []byte("Recursion is..."))
			case "bye":
				return
			default:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("echo: "+string(data)))
			}
		}
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestWidgetOverWebsocket(t *testing.T) {
	srv := newTutorServer(t)
	dialer := ws.NewDialer(srv.URL+"/api/v1", ws.DefaultOptions(), zerolog.Nop())
	w := NewWidget("room1", dialer)
	t.Cleanup(func() { _ = w.Dismiss(context.Background()) })

	s := w.Open(context.Background())
	waitState(t, s, chat.StateOpen)

	s.Send("What is recursion?")
	waitMessages(t, s, 2)
	assert.Equal(t, []entry{
		{chat.RoleUser, "What is recursion?"},
		{chat.RoleAssistant, "Recursion is..."},
	}, entries(s.Messages()))
	assert.Equal(t, chat.DeliverySent, s.Delivery(s.Messages()[0].ID))

	// The server hangs up; the session reports it and a reopen starts over.
	s.Send("bye")
	waitState(t, s, chat.StateClosedWithError)
	assert.Len(t, s.Messages(), 3)

	fresh := w.Open(context.Background())
	waitState(t, fresh, chat.StateOpen)
	assert.Empty(t, fresh.Messages())
}

func TestWidgetOverWebsocketUnknownRoute(t *testing.T) {
	srv := newTutorServer(t)
	dialer := ws.NewDialer(srv.URL+"/elsewhere", ws.DefaultOptions(), zerolog.Nop())
	w := NewWidget("room1", dialer)

	s := w.Open(context.Background())
	waitState(t, s, chat.StateClosedWithError)
	s.Send("hello")
	assert.Empty(t, s.Messages())
}
