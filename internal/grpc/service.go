package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fantasy.v1.FantasyService"

// FantasyServiceServer is the server side of fantasy.v1.FantasyService.
// Every message is a google.protobuf.Struct carrying the same JSON shapes
// as the HTTP API.
type FantasyServiceServer interface {
	GetDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitPick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateMatchups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateLeague(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLeague(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinLeague(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScoreWeek(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlayerPoints(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchChanges(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(FantasyServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(FantasyServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func watchChangesHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FantasyServiceServer).WatchChanges(in, stream)
}

// ServiceDesc describes fantasy.v1.FantasyService for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FantasyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetDraft", FantasyServiceServer.GetDraft),
		unary("SubmitPick", FantasyServiceServer.SubmitPick),
		unary("GenerateMatchups", FantasyServiceServer.GenerateMatchups),
		unary("CreateLeague", FantasyServiceServer.CreateLeague),
		unary("GetLeague", FantasyServiceServer.GetLeague),
		unary("JoinLeague", FantasyServiceServer.JoinLeague),
		unary("StartDraft", FantasyServiceServer.StartDraft),
		unary("ScoreWeek", FantasyServiceServer.ScoreWeek),
		unary("PlayerPoints", FantasyServiceServer.PlayerPoints),
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchChanges", Handler: watchChangesHandler, ServerStreams: true},
	},
}

// RegisterFantasyServiceServer registers srv on s.
func RegisterFantasyServiceServer(s grpc.ServiceRegistrar, srv FantasyServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls fantasy.v1.FantasyService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a unary method by name.
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens a WatchChanges stream. Each Recv yields one change event.
func (c *Client) Watch(ctx context.Context, id string) (func() (*structpb.Struct, error), error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/WatchChanges")
	if err != nil {
		return nil, err
	}
	in, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return func() (*structpb.Struct, error) {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			return nil, err
		}
		return out, nil
	}, nil
}
