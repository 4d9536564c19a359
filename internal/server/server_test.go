package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/muzz-match/internal/api"
	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/chat"
	"github.com/oggyb/muzz-match/internal/service/explore"
	"github.com/oggyb/muzz-match/internal/testutil"
)

type harness struct {
	app     *app.AppContext
	conn    *grpc.ClientConn
	explore *api.ExploreServiceClient
	chat    *api.ChatServiceClient
}

func start(t *testing.T) *harness {
	t.Helper()

	cfg := testutil.Config()
	database := testutil.NewDB(t)
	rdb, _ := testutil.NewCache(t)
	appCtx := app.New(cfg, database, rdb, testutil.NewAllocator(t), testutil.Logger(), nil)

	prefsMen := &db.Preferences{MinAge: 18, MaxAge: 60, InterestedInGender: "male"}
	prefsWomen := &db.Preferences{MinAge: 18, MaxAge: 60, InterestedInGender: "female"}
	testutil.CreateUser(t, database, testutil.Profile{ID: 1, Gender: "female", Age: 30, City: "Leeds", Prefs: prefsMen})
	testutil.CreateUser(t, database, testutil.Profile{ID: 2, Gender: "male", Age: 31, City: "Leeds", Prefs: prefsWomen})

	srv := server.NewGRPCServer(cfg, testutil.Logger(), appCtx.Tokens,
		explore.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx.Chat),
	)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{
		app:     appCtx,
		conn:    conn,
		explore: api.NewExploreServiceClient(conn),
		chat:    api.NewChatServiceClient(conn),
	}
}

// as returns a context carrying userID's bearer token.
func (h *harness) as(t *testing.T, userID uint64) context.Context {
	t.Helper()
	token, err := h.app.Tokens.Sign(userID)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (h *harness) match(t *testing.T) string {
	t.Helper()
	_, err := h.explore.RecordSwipe(h.as(t, 1), &api.RecordSwipeRequest{TargetUserID: "2", Action: "LIKE"})
	require.NoError(t, err)
	resp, err := h.explore.RecordSwipe(h.as(t, 2), &api.RecordSwipeRequest{TargetUserID: "1", Action: "LIKE"})
	require.NoError(t, err)
	require.True(t, resp.IsMatch)
	return resp.MatchID
}

func TestHealthIsPublic(t *testing.T) {
	h := start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(h.conn).Check(ctx, &healthpb.HealthCheckRequest{}, grpc.WaitForReady(true))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestExplore_RequiresToken(t *testing.T) {
	h := start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := h.explore.CountLikedYou(ctx, &api.CountLikedYouRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer nope")
	_, err = h.explore.CountLikedYou(bad, &api.CountLikedYouRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestExplore_SwipeToMatchOverTheWire(t *testing.T) {
	h := start(t)

	count, err := h.explore.CountLikedYou(h.as(t, 2), &api.CountLikedYouRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count.Count)

	cands, err := h.explore.FindCandidates(h.as(t, 1), &api.FindCandidatesRequest{})
	require.NoError(t, err)
	require.Len(t, cands.Candidates, 1)
	assert.Equal(t, "2", cands.Candidates[0].ID)

	matchID := h.match(t)

	count, err = h.explore.CountLikedYou(h.as(t, 2), &api.CountLikedYouRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count.Count)

	hist, err := h.explore.GetMatchHistory(h.as(t, 2), &api.GetMatchHistoryRequest{})
	require.NoError(t, err)
	require.Len(t, hist.Matches, 1)
	assert.Equal(t, matchID, hist.Matches[0].ID)
	require.NotNil(t, hist.Matches[0].Target)
	assert.Equal(t, "1", hist.Matches[0].Target.ID)

	_, err = h.explore.RecordSwipe(h.as(t, 1), &api.RecordSwipeRequest{TargetUserID: "2", Action: "LIKE"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestChat_RequiresToken(t *testing.T) {
	h := start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := h.chat.Connect(ctx)
	if err == nil {
		_, err = stream.Recv()
	}
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestChat_MessageReachesOtherPartyOnly(t *testing.T) {
	h := start(t)
	matchID := h.match(t)

	alice, err := h.chat.Connect(h.as(t, 1))
	require.NoError(t, err)
	bob, err := h.chat.Connect(h.as(t, 2))
	require.NoError(t, err)

	require.NoError(t, alice.Send(&api.ClientEvent{JoinChat: &api.JoinChat{OtherUserID: "2"}}))
	ev, err := alice.Recv()
	require.NoError(t, err)
	require.NotNil(t, ev.Joined)
	assert.Equal(t, matchID, ev.Joined.RoomID)

	require.NoError(t, bob.Send(&api.ClientEvent{SendMessage: &api.SendMessage{MatchID: matchID, Content: "hi"}}))

	ev, err = alice.Recv()
	require.NoError(t, err)
	require.NotNil(t, ev.ReceiveMessage)
	assert.Equal(t, "2", ev.ReceiveMessage.SenderID)
	assert.Equal(t, matchID, ev.ReceiveMessage.MatchID)
	assert.Equal(t, "hi", ev.ReceiveMessage.Content)

	// Events are delivered in order, so if an echo had been queued for bob
	// it would arrive before this error.
	require.NoError(t, bob.Send(&api.ClientEvent{JoinChat: &api.JoinChat{OtherUserID: "99"}}))
	ev, err = bob.Recv()
	require.NoError(t, err)
	require.NotNil(t, ev.Error)
	assert.Equal(t, "not_found", ev.Error.Kind)

	msgs, err := h.explore.ListMessages(h.as(t, 1), &api.ListMessagesRequest{MatchID: matchID})
	require.NoError(t, err)
	require.Len(t, msgs.Messages, 1)
	assert.Equal(t, "hi", msgs.Messages[0].Content)

	require.NoError(t, alice.CloseSend())
	require.NoError(t, bob.CloseSend())
}
