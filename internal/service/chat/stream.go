package chat

import (
	"errors"
	"io"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oggyb/muzz-match/internal/api"
	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/logger"
)

// Server implements api.ChatServiceServer on top of Service.
type Server struct {
	api.UnimplementedChatServiceServer
	svc *Service
}

func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

// Connect serves one chat stream. The stream is authenticated by the auth
// interceptor; a context without a user is rejected before any event is read.
//
// Incoming events are handled on a reader goroutine, in order. Outgoing
// events are written from this goroutine only. A panic while handling an
// event ends the stream with codes.Internal; the recover interceptor cannot
// see the reader goroutine.
func (s *Server) Connect(stream api.ChatService_ConnectServer) error {
	userID, ok := auth.UserIDFrom(stream.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}

	sess := s.svc.Open(userID)
	defer sess.Close()

	log := logger.From(stream.Context()).With(
		slog.String("conn_id", sess.conn.id),
		slog.Uint64("user_id", userID),
	)
	ctx := logger.Into(stream.Context(), log)
	log.Info("chat connected")

	readErr := make(chan error, 1)
	go func() {
		defer sess.Close()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				readErr <- status.Error(codes.Internal, "internal server error")
			}
		}()
		for {
			ev, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && status.Code(err) != codes.Canceled {
					log.Debug("chat read ended", slog.Any("err", err))
				}
				return
			}
			sess.Handle(ctx, ev)
		}
	}()

	err := sess.conn.writeLoop(stream)
	log.Info("chat disconnected")
	select {
	case rerr := <-readErr:
		return rerr
	default:
		return err
	}
}

// Registrar ties the chat stream into the gRPC server.
type Registrar struct {
	svc *Service
}

func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

func (r *Registrar) Register(s *grpc.Server) {
	api.RegisterChatServiceServer(s, NewServer(r.svc))
}
