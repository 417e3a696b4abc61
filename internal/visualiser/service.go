package visualiser

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/airwrite/internal/stroke"
)

// WatchMethod is the full gRPC method name of the snapshot stream.
const WatchMethod = "/airwrite.StrokeService/Watch"

// StrokeServiceServer is the server API for airwrite.StrokeService.
//
// Watch takes an empty request and streams one structpb.Struct per
// published snapshot, starting with the latest one.
type StrokeServiceServer interface {
	Watch(req *emptypb.Empty, stream grpc.ServerStream) error
}

// StrokeServiceDesc describes airwrite.StrokeService. The messages are
// well-known protobuf types, so no generated code is needed.
var StrokeServiceDesc = grpc.ServiceDesc{
	ServiceName: "airwrite.StrokeService",
	HandlerType: (*StrokeServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "airwrite/stroke.proto",
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StrokeServiceServer).Watch(in, stream)
}

// RegisterStrokeService registers srv on s.
func RegisterStrokeService(s grpc.ServiceRegistrar, srv StrokeServiceServer) {
	s.RegisterService(&StrokeServiceDesc, srv)
}

// Server implements StrokeServiceServer on top of a Publisher.
type Server struct {
	publisher *Publisher
}

// Watch streams snapshots until the client goes away or the publisher stops.
func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	p := s.publisher
	client, ok := p.addClient()
	if !ok {
		return status.Errorf(codes.ResourceExhausted, "max clients (%d) reached", p.config.MaxClients)
	}
	defer p.removeClient(client.id)

	if snap, ok := p.Latest(); ok {
		if err := sendSnapshot(stream, snap); err != nil {
			return err
		}
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return nil
		case snap := <-client.snapCh:
			if err := sendSnapshot(stream, snap); err != nil {
				opsf("send to %s failed: %v", client.id, err)
				return err
			}
		}
	}
}

func sendSnapshot(stream grpc.ServerStream, snap stroke.Snapshot) error {
	msg, err := SnapshotToStruct(snap)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.SendMsg(msg)
}

// WatchClient receives snapshots from a Watch stream.
type WatchClient struct {
	stream grpc.ClientStream
}

// Watch opens a snapshot stream on conn.
func Watch(ctx context.Context, conn grpc.ClientConnInterface) (*WatchClient, error) {
	stream, err := conn.NewStream(ctx, &StrokeServiceDesc.Streams[0], WatchMethod)
	if err != nil {
		return nil, fmt.Errorf("open watch stream: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, fmt.Errorf("send watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("close watch request: %w", err)
	}
	return &WatchClient{stream: stream}, nil
}

// Recv blocks for the next snapshot.
func (c *WatchClient) Recv() (stroke.Snapshot, error) {
	msg := new(structpb.Struct)
	if err := c.stream.RecvMsg(msg); err != nil {
		return stroke.Snapshot{}, err
	}
	return SnapshotFromStruct(msg)
}
