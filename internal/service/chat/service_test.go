package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/api"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/service/match"
	tu "github.com/oggyb/muzz-match/internal/testutil"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

type fixture struct {
	svc      *Service
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
}

func newFixture(t *testing.T, cfg config.ChatConfig, opts ...Option) *fixture {
	t.Helper()
	database := tu.NewDB(t)
	ids := tu.NewAllocator(t)
	matches := repository.NewMatchRepository(database, ids)
	messages := repository.NewMessageRepository(database)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		svc:      NewService(ids, match.NewRegistry(matches, nil), messages, cfg, opts...),
		matches:  matches,
		messages: messages,
	}
}

func defaultConfig() config.ChatConfig {
	return config.ChatConfig{MaxMessageLen: 100, OutboxSize: 8}
}

// seedMatch stores both directions of a match with a fixed id.
func (f *fixture) seedMatch(t *testing.T, id, a, b uint64) {
	t.Helper()
	ctx := context.Background()
	at := fixedNow.Add(-time.Hour)
	for _, m := range []*db.Match{
		{ID: id, UserID: a, TargetUserID: b, CreatedAt: at},
		{ID: id, UserID: b, TargetUserID: a, CreatedAt: at},
	} {
		ok, err := f.matches.Create(ctx, m)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

// drain returns everything currently queued for c.
func drain(c *Conn) []*api.ServerEvent {
	var out []*api.ServerEvent
	for {
		select {
		case ev := <-c.outbox:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSendMessage_ReachesOthersButNotSender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seedMatch(t, 555, 1, 2)

	alice := f.svc.Open(1)
	defer alice.Close()
	bob := f.svc.Open(2)
	defer bob.Close()

	room, err := alice.JoinChat(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "555", room)
	joined := drain(alice.Conn())
	require.Len(t, joined, 1)
	require.NotNil(t, joined[0].Joined)
	assert.Equal(t, "555", joined[0].Joined.RoomID)

	bob.Handle(ctx, &api.ClientEvent{SendMessage: &api.SendMessage{MatchID: "555", Content: "hi"}})

	got := drain(alice.Conn())
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ReceiveMessage)
	assert.Equal(t, "2", got[0].ReceiveMessage.SenderID)
	assert.Equal(t, "555", got[0].ReceiveMessage.MatchID)
	assert.Equal(t, "hi", got[0].ReceiveMessage.Content)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond).UnixMilli(), got[0].ReceiveMessage.Timestamp)

	assert.Empty(t, drain(bob.Conn()), "sender must not receive its own echo")

	stored, err := f.messages.ListByMatch(ctx, 555)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, uint64(2), stored[0].SenderID)
}

func TestSendMessage_SenderInRoomGetsNoEcho(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seedMatch(t, 555, 1, 2)

	alice := f.svc.Open(1)
	defer alice.Close()
	aliceTab := f.svc.Open(1)
	defer aliceTab.Close()
	bob := f.svc.Open(2)
	defer bob.Close()

	for _, s := range []*Session{alice, aliceTab} {
		_, err := s.JoinChat(ctx, 2)
		require.NoError(t, err)
	}
	_, err := bob.JoinChat(ctx, 1)
	require.NoError(t, err)
	drain(alice.Conn())
	drain(aliceTab.Conn())
	drain(bob.Conn())

	_, err = alice.SendMessage(ctx, 555, "hello")
	require.NoError(t, err)

	assert.Empty(t, drain(alice.Conn()))
	assert.Len(t, drain(aliceTab.Conn()), 1, "other connections of the sender still receive it")
	assert.Len(t, drain(bob.Conn()), 1)
}

func TestJoinChat_WithoutMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	s := f.svc.Open(1)
	defer s.Close()

	_, err := s.JoinChat(ctx, 2)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))

	s.Handle(ctx, &api.ClientEvent{JoinChat: &api.JoinChat{OtherUserID: "2"}})
	got := drain(s.Conn())
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, string(svcErr.KindNotFound), got[0].Error.Kind)
	assert.Equal(t, 0, f.svc.Hub().Members("555"))
}

func TestSendMessage_NotAParty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seedMatch(t, 555, 1, 2)

	eve := f.svc.Open(3)
	defer eve.Close()

	_, err := eve.SendMessage(ctx, 555, "hi")
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))

	stored, err := f.messages.ListByMatch(ctx, 555)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

type failingMessages struct{}

func (failingMessages) Create(context.Context, *db.Message) error {
	return errors.New("disk full")
}

func (failingMessages) ListByMatch(context.Context, uint64) ([]db.Message, error) {
	return nil, nil
}

func TestSendMessage_PersistenceFailureOnlyReachesSender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seedMatch(t, 555, 1, 2)
	f.svc.messages = failingMessages{}

	alice := f.svc.Open(1)
	defer alice.Close()
	bob := f.svc.Open(2)
	defer bob.Close()
	_, err := alice.JoinChat(ctx, 2)
	require.NoError(t, err)
	drain(alice.Conn())

	bob.Handle(ctx, &api.ClientEvent{SendMessage: &api.SendMessage{MatchID: "555", Content: "hi"}})

	assert.Empty(t, drain(alice.Conn()))
	got := drain(bob.Conn())
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, string(svcErr.KindInternal), got[0].Error.Kind)
	assert.Equal(t, "failed to save message", got[0].Error.Message)
	assert.NotContains(t, got[0].Error.Message, "disk full")

	// the connection stays usable
	_, err = bob.JoinChat(ctx, 1)
	assert.NoError(t, err)
}

func TestSendMessage_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.ChatConfig{MaxMessageLen: 5, OutboxSize: 8})
	f.seedMatch(t, 555, 1, 2)

	s := f.svc.Open(1)
	defer s.Close()

	cases := map[string]string{
		"empty":      "",
		"whitespace": "  \n\t",
		"too long":   "abcdef",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.SendMessage(ctx, 555, content)
			assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
		})
	}

	_, err := s.SendMessage(ctx, 555, "héllo")
	assert.NoError(t, err, "length counts characters, not bytes")
}

func TestHandle_BadEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	s := f.svc.Open(1)
	defer s.Close()

	events := []*api.ClientEvent{
		{},
		{JoinChat: &api.JoinChat{OtherUserID: "bob"}},
		{SendMessage: &api.SendMessage{MatchID: "-1", Content: "x"}},
		{SendMessage: &api.SendMessage{MatchID: "0", Content: "x"}},
	}
	for _, ev := range events {
		s.Handle(ctx, ev)
	}

	got := drain(s.Conn())
	require.Len(t, got, len(events))
	for _, ev := range got {
		require.NotNil(t, ev.Error)
		assert.Equal(t, string(svcErr.KindValidation), ev.Error.Kind)
	}
}

func TestSendMessage_RateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.ChatConfig{MaxMessageLen: 100, OutboxSize: 8, RatePerSec: 0.001, RateBurst: 2})
	f.seedMatch(t, 555, 1, 2)

	s := f.svc.Open(1)
	defer s.Close()

	for i := 0; i < 2; i++ {
		_, err := s.SendMessage(ctx, 555, "hi")
		require.NoError(t, err)
	}
	_, err := s.SendMessage(ctx, 555, "hi")
	assert.Equal(t, svcErr.KindRateLimited, svcErr.KindOf(err))

	other := f.svc.Open(1)
	defer other.Close()
	_, err = other.SendMessage(ctx, 555, "hi")
	assert.NoError(t, err, "limits are per connection")
}

func TestOutboxFullDropsForSlowConnectionOnly(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture(t, config.ChatConfig{MaxMessageLen: 100, OutboxSize: 1}, WithMetrics(m))
	f.seedMatch(t, 555, 1, 2)

	slow := f.svc.Open(1)
	defer slow.Close()
	sender := f.svc.Open(2)
	defer sender.Close()

	_, err := slow.JoinChat(ctx, 2)
	require.NoError(t, err)

	// The join confirmation fills the single slot.
	for i := 0; i < 3; i++ {
		_, err := sender.SendMessage(ctx, 555, "msg")
		require.NoError(t, err, "a slow reader must not fail the sender")
	}

	got := drain(slow.Conn())
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].Joined)
	expected := `
# HELP muzz_chat_events_dropped_total Events dropped because a connection outbox was full.
# TYPE muzz_chat_events_dropped_total counter
muzz_chat_events_dropped_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "muzz_chat_events_dropped_total"))

	stored, err := f.messages.ListByMatch(ctx, 555)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestClose_LeavesRooms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seedMatch(t, 555, 1, 2)
	f.seedMatch(t, 777, 1, 3)

	s := f.svc.Open(1)
	_, err := s.JoinChat(ctx, 2)
	require.NoError(t, err)
	_, err = s.JoinChat(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.Hub().Members("555"))
	assert.Equal(t, 1, f.svc.Hub().Members("777"))

	s.Close()
	s.Close()
	assert.Equal(t, 0, f.svc.Hub().Members("555"))
	assert.Equal(t, 0, f.svc.Hub().Members("777"))
	assert.False(t, s.Conn().deliver(&api.ServerEvent{}))
}

type recordingSender struct {
	sent []*api.ServerEvent
	err  error
}

func (r *recordingSender) Send(ev *api.ServerEvent) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, ev)
	return nil
}

func TestWriteLoop_FlushesQueuedOnClose(t *testing.T) {
	c := newConn(1, 4, nil)
	require.True(t, c.deliver(&api.ServerEvent{Joined: &api.Joined{RoomID: "1"}}))
	require.True(t, c.deliver(&api.ServerEvent{Joined: &api.Joined{RoomID: "2"}}))
	c.close()

	s := &recordingSender{}
	require.NoError(t, c.writeLoop(s))
	require.Len(t, s.sent, 2)
	assert.Equal(t, "1", s.sent[0].Joined.RoomID)
	assert.Equal(t, "2", s.sent[1].Joined.RoomID)
}

func TestWriteLoop_SendError(t *testing.T) {
	c := newConn(1, 4, nil)
	require.True(t, c.deliver(&api.ServerEvent{}))

	boom := errors.New("broken pipe")
	err := c.writeLoop(&recordingSender{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seedMatch(t, 555, 1, 2)

	s := f.svc.Open(1)
	defer s.Close()
	for _, c := range []string{"one", "two"} {
		_, err := s.SendMessage(ctx, 555, c)
		require.NoError(t, err)
	}

	msgs, err := f.svc.ListMessages(ctx, 2, 555)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)

	_, err = f.svc.ListMessages(ctx, 3, 555)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

func TestHub_BroadcastUnknownRoom(t *testing.T) {
	h := NewHub()
	assert.Zero(t, h.Broadcast("nope", nil, &api.ServerEvent{}))

	c := newConn(1, 1, nil)
	h.Join("r", c)
	h.Join("r", c)
	assert.Equal(t, 1, h.Members("r"))
	h.Leave("r", c)
	assert.Equal(t, 0, h.Members("r"))
	assert.NotEmpty(t, c.ID())
}
