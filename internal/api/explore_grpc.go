package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ExploreServiceName = "muzz.explore.v1.ExploreService"

	ExploreService_RecordSwipe_FullMethodName     = "/" + ExploreServiceName + "/RecordSwipe"
	ExploreService_GetSwipeHistory_FullMethodName = "/" + ExploreServiceName + "/GetSwipeHistory"
	ExploreService_GetMatch_FullMethodName        = "/" + ExploreServiceName + "/GetMatch"
	ExploreService_GetMatchHistory_FullMethodName = "/" + ExploreServiceName + "/GetMatchHistory"
	ExploreService_FindCandidates_FullMethodName  = "/" + ExploreServiceName + "/FindCandidates"
	ExploreService_CountLikedYou_FullMethodName   = "/" + ExploreServiceName + "/CountLikedYou"
	ExploreService_GetProfile_FullMethodName      = "/" + ExploreServiceName + "/GetProfile"
	ExploreService_UpdateProfile_FullMethodName   = "/" + ExploreServiceName + "/UpdateProfile"
	ExploreService_ListMessages_FullMethodName    = "/" + ExploreServiceName + "/ListMessages"
)

// ExploreServiceServer is the server API for ExploreService.
// The acting user is taken from the authenticated context, never from the request.
type ExploreServiceServer interface {
	RecordSwipe(context.Context, *RecordSwipeRequest) (*RecordSwipeResponse, error)
	GetSwipeHistory(context.Context, *GetSwipeHistoryRequest) (*GetSwipeHistoryResponse, error)
	GetMatch(context.Context, *GetMatchRequest) (*GetMatchResponse, error)
	GetMatchHistory(context.Context, *GetMatchHistoryRequest) (*GetMatchHistoryResponse, error)
	FindCandidates(context.Context, *FindCandidatesRequest) (*FindCandidatesResponse, error)
	CountLikedYou(context.Context, *CountLikedYouRequest) (*CountLikedYouResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
}

// UnimplementedExploreServiceServer can be embedded to have forward compatible implementations.
type UnimplementedExploreServiceServer struct{}

func (UnimplementedExploreServiceServer) RecordSwipe(context.Context, *RecordSwipeRequest) (*RecordSwipeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RecordSwipe not implemented")
}
func (UnimplementedExploreServiceServer) GetSwipeHistory(context.Context, *GetSwipeHistoryRequest) (*GetSwipeHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSwipeHistory not implemented")
}
func (UnimplementedExploreServiceServer) GetMatch(context.Context, *GetMatchRequest) (*GetMatchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMatch not implemented")
}
func (UnimplementedExploreServiceServer) GetMatchHistory(context.Context, *GetMatchHistoryRequest) (*GetMatchHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMatchHistory not implemented")
}
func (UnimplementedExploreServiceServer) FindCandidates(context.Context, *FindCandidatesRequest) (*FindCandidatesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FindCandidates not implemented")
}
func (UnimplementedExploreServiceServer) CountLikedYou(context.Context, *CountLikedYouRequest) (*CountLikedYouResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CountLikedYou not implemented")
}
func (UnimplementedExploreServiceServer) GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetProfile not implemented")
}
func (UnimplementedExploreServiceServer) UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateProfile not implemented")
}
func (UnimplementedExploreServiceServer) ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMessages not implemented")
}

func RegisterExploreServiceServer(s grpc.ServiceRegistrar, srv ExploreServiceServer) {
	s.RegisterService(&ExploreService_ServiceDesc, srv)
}

// unaryHandler adapts a typed ExploreServiceServer method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(ExploreServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExploreServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExploreServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ExploreService_ServiceDesc is the grpc.ServiceDesc for ExploreService.
var ExploreService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ExploreServiceName,
	HandlerType: (*ExploreServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordSwipe", Handler: unaryHandler(ExploreService_RecordSwipe_FullMethodName, ExploreServiceServer.RecordSwipe)},
		{MethodName: "GetSwipeHistory", Handler: unaryHandler(ExploreService_GetSwipeHistory_FullMethodName, ExploreServiceServer.GetSwipeHistory)},
		{MethodName: "GetMatch", Handler: unaryHandler(ExploreService_GetMatch_FullMethodName, ExploreServiceServer.GetMatch)},
		{MethodName: "GetMatchHistory", Handler: unaryHandler(ExploreService_GetMatchHistory_FullMethodName, ExploreServiceServer.GetMatchHistory)},
		{MethodName: "FindCandidates", Handler: unaryHandler(ExploreService_FindCandidates_FullMethodName, ExploreServiceServer.FindCandidates)},
		{MethodName: "CountLikedYou", Handler: unaryHandler(ExploreService_CountLikedYou_FullMethodName, ExploreServiceServer.CountLikedYou)},
		{MethodName: "GetProfile", Handler: unaryHandler(ExploreService_GetProfile_FullMethodName, ExploreServiceServer.GetProfile)},
		{MethodName: "UpdateProfile", Handler: unaryHandler(ExploreService_UpdateProfile_FullMethodName, ExploreServiceServer.UpdateProfile)},
		{MethodName: "ListMessages", Handler: unaryHandler(ExploreService_ListMessages_FullMethodName, ExploreServiceServer.ListMessages)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "muzz/explore/v1/explore.json",
}

// ExploreServiceClient is the client API for ExploreService.
type ExploreServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewExploreServiceClient(cc grpc.ClientConnInterface) *ExploreServiceClient {
	return &ExploreServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExploreServiceClient) RecordSwipe(ctx context.Context, in *RecordSwipeRequest, opts ...grpc.CallOption) (*RecordSwipeResponse, error) {
	return invoke[RecordSwipeResponse](ctx, c.cc, ExploreService_RecordSwipe_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) GetSwipeHistory(ctx context.Context, in *GetSwipeHistoryRequest, opts ...grpc.CallOption) (*GetSwipeHistoryResponse, error) {
	return invoke[GetSwipeHistoryResponse](ctx, c.cc, ExploreService_GetSwipeHistory_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) GetMatch(ctx context.Context, in *GetMatchRequest, opts ...grpc.CallOption) (*GetMatchResponse, error) {
	return invoke[GetMatchResponse](ctx, c.cc, ExploreService_GetMatch_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) GetMatchHistory(ctx context.Context, in *GetMatchHistoryRequest, opts ...grpc.CallOption) (*GetMatchHistoryResponse, error) {
	return invoke[GetMatchHistoryResponse](ctx, c.cc, ExploreService_GetMatchHistory_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) FindCandidates(ctx context.Context, in *FindCandidatesRequest, opts ...grpc.CallOption) (*FindCandidatesResponse, error) {
	return invoke[FindCandidatesResponse](ctx, c.cc, ExploreService_FindCandidates_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) CountLikedYou(ctx context.Context, in *CountLikedYouRequest, opts ...grpc.CallOption) (*CountLikedYouResponse, error) {
	return invoke[CountLikedYouResponse](ctx, c.cc, ExploreService_CountLikedYou_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, ExploreService_GetProfile_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, ExploreService_UpdateProfile_FullMethodName, in, opts)
}

func (c *ExploreServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, ExploreService_ListMessages_FullMethodName, in, opts)
}
