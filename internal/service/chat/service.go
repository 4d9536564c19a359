package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/oggyb/muzz-match/internal/api"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// Matches authorizes room access. *match.Registry satisfies it.
type Matches interface {
	GetMatch(ctx context.Context, userID, targetUserID uint64) (*db.Match, error)
	GetMatchByID(ctx context.Context, matchID, userID uint64) (*db.Match, error)
}

// Messages is the message persistence. *repository.MessageRepository satisfies it.
type Messages interface {
	Create(ctx context.Context, m *db.Message) error
	ListByMatch(ctx context.Context, matchID uint64) ([]db.Message, error)
}

type Service struct {
	hub      *Hub
	ids      *idgen.Allocator
	matches  Matches
	messages Messages
	cfg      config.ChatConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(ids *idgen.Allocator, matches Matches, messages Messages, cfg config.ChatConfig, opts ...Option) *Service {
	s := &Service{
		hub:      NewHub(),
		ids:      ids,
		matches:  matches,
		messages: messages,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub exposes room membership, mainly for diagnostics and tests.
func (s *Service) Hub() *Hub { return s.hub }

// RoomID is the room key of a match.
func RoomID(matchID uint64) string { return idgen.Format(matchID) }

// Session is the state of one authenticated connection.
// Its methods are called from the connection's single reader goroutine.
type Session struct {
	svc     *Service
	conn    *Conn
	limiter *rate.Limiter

	closeOnce sync.Once
}

// Open binds a new connection to userID.
func (s *Service) Open(userID uint64) *Session {
	limit := rate.Inf
	if s.cfg.RatePerSec > 0 {
		limit = rate.Limit(s.cfg.RatePerSec)
	}
	burst := s.cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	s.metrics.ChatConnected()
	return &Session{
		svc:     s,
		conn:    newConn(userID, s.cfg.OutboxSize, s.metrics),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Close leaves every room and stops the writer. It is safe to call more than once.
func (sess *Session) Close() {
	sess.closeOnce.Do(func() {
		sess.svc.hub.LeaveAll(sess.conn)
		sess.conn.close()
		sess.svc.metrics.ChatDisconnected()
	})
}

func (sess *Session) Conn() *Conn { return sess.conn }

// JoinChat subscribes the connection to the room of its match with
// otherUserID and confirms with the room id.
func (sess *Session) JoinChat(ctx context.Context, otherUserID uint64) (string, error) {
	m, err := sess.svc.matches.GetMatch(ctx, sess.conn.userID, otherUserID)
	if err != nil {
		return "", err
	}

	room := RoomID(m.ID)
	sess.svc.hub.Join(room, sess.conn)
	sess.conn.deliver(&api.ServerEvent{Joined: &api.Joined{RoomID: room}})

	logger.From(ctx).Debug("joined chat room",
		slog.String("conn_id", sess.conn.id),
		slog.Uint64("user_id", sess.conn.userID),
		slog.String("room", room),
	)
	return room, nil
}

// SendMessage persists content in matchID and relays it to every other
// connection in the room. The sender's connection gets no echo.
func (sess *Session) SendMessage(ctx context.Context, matchID uint64, content string) (*db.Message, error) {
	if strings.TrimSpace(content) == "" {
		sess.svc.metrics.ChatMessage("rejected")
		return nil, svcErr.Validation("message content is required")
	}
	if max := sess.svc.cfg.MaxMessageLen; max > 0 && utf8.RuneCountInString(content) > max {
		sess.svc.metrics.ChatMessage("rejected")
		return nil, svcErr.Validation("message must be at most %d characters", max)
	}
	if !sess.limiter.Allow() {
		sess.svc.metrics.ChatMessage("rejected")
		return nil, svcErr.RateLimited("too many messages, slow down")
	}
	if _, err := sess.svc.matches.GetMatchByID(ctx, matchID, sess.conn.userID); err != nil {
		sess.svc.metrics.ChatMessage("rejected")
		return nil, err
	}

	id, err := sess.svc.ids.Next()
	if err != nil {
		return nil, err
	}
	msg := &db.Message{
		ID:        id,
		SenderID:  sess.conn.userID,
		MatchID:   matchID,
		Content:   content,
		Timestamp: sess.svc.now().UTC().Truncate(time.Millisecond),
	}
	if err := sess.svc.messages.Create(ctx, msg); err != nil {
		sess.svc.metrics.ChatMessage("failed")
		return nil, svcErr.Wrap(svcErr.KindInternal, err, "failed to save message")
	}

	delivered := sess.svc.hub.Broadcast(RoomID(matchID), sess.conn, &api.ServerEvent{
		ReceiveMessage: &api.ReceiveMessage{
			SenderID:  idgen.Format(msg.SenderID),
			MatchID:   idgen.Format(msg.MatchID),
			Content:   msg.Content,
			Timestamp: msg.Timestamp.UnixMilli(),
		},
	})
	sess.svc.metrics.ChatMessage("delivered")

	logger.From(ctx).Debug("message relayed",
		slog.Uint64("message_id", msg.ID),
		slog.Uint64("match_id", matchID),
		slog.Int("recipients", delivered),
	)
	return msg, nil
}

// Handle runs one client event. Failures are reported to this connection
// only, as an error event; the connection stays open.
func (sess *Session) Handle(ctx context.Context, ev *api.ClientEvent) {
	var err error
	switch {
	case ev.JoinChat != nil:
		var other uint64
		if other, err = parseID("otherUserId", ev.JoinChat.OtherUserID); err == nil {
			_, err = sess.JoinChat(ctx, other)
		}
	case ev.SendMessage != nil:
		var matchID uint64
		if matchID, err = parseID("matchId", ev.SendMessage.MatchID); err == nil {
			_, err = sess.SendMessage(ctx, matchID, ev.SendMessage.Content)
		}
	default:
		err = svcErr.Validation("event must carry joinChat or sendMessage")
	}
	if err != nil {
		sess.fail(ctx, err)
	}
}

func (sess *Session) fail(ctx context.Context, err error) {
	kind := svcErr.KindOf(err)
	log := logger.From(ctx).With(slog.String("conn_id", sess.conn.id), slog.Uint64("user_id", sess.conn.userID))
	if kind == svcErr.KindInternal {
		log.Error("chat event failed", slog.Any("err", err))
	} else {
		log.Debug("chat event rejected", slog.String("kind", string(kind)), slog.String("reason", svcErr.Message(err)))
	}
	sess.conn.deliver(&api.ServerEvent{Error: &api.ErrorEvent{Kind: string(kind), Message: svcErr.Message(err)}})
}

func parseID(field, v string) (uint64, error) {
	id, err := idgen.Parse(strings.TrimSpace(v))
	if err != nil || id == 0 {
		return 0, svcErr.Validation("%s must be a decimal id", field)
	}
	return id, nil
}

// ListMessages returns the history of matchID, oldest first, if userID is
// one of its parties.
func (s *Service) ListMessages(ctx context.Context, userID, matchID uint64) ([]db.Message, error) {
	if _, err := s.matches.GetMatchByID(ctx, matchID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
