package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ChatServiceName = "muzz.chat.v1.ChatService"

	ChatService_Connect_FullMethodName = "/" + ChatServiceName + "/Connect"
)

// ChatService_ConnectServer is the server side of the chat stream.
type ChatService_ConnectServer = grpc.BidiStreamingServer[ClientEvent, ServerEvent]

// ChatService_ConnectClient is the client side of the chat stream.
type ChatService_ConnectClient = grpc.BidiStreamingClient[ClientEvent, ServerEvent]

// ChatServiceServer is the server API for ChatService.
type ChatServiceServer interface {
	Connect(ChatService_ConnectServer) error
}

type UnimplementedChatServiceServer struct{}

func (UnimplementedChatServiceServer) Connect(ChatService_ConnectServer) error {
	return status.Error(codes.Unimplemented, "method Connect not implemented")
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

func _ChatService_Connect_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatServiceServer).Connect(&grpc.GenericServerStream[ClientEvent, ServerEvent]{ServerStream: stream})
}

// ChatService_ServiceDesc is the grpc.ServiceDesc for ChatService.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       _ChatService_Connect_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "muzz/chat/v1/chat.json",
}

// ChatServiceClient is the client API for ChatService.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

// Connect opens the chat stream. The bearer token goes in the outgoing
// "authorization" metadata of ctx.
func (c *ChatServiceClient) Connect(ctx context.Context, opts ...grpc.CallOption) (ChatService_ConnectClient, error) {
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_Connect_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[ClientEvent, ServerEvent]{ClientStream: stream}, nil
}
