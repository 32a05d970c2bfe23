// Package regrpc is the RPC surface of the RegistryStore: a hand-authored
// stand-in for what protoc-gen-go-grpc would generate from
// proto/registry.proto, since this module never runs protoc (see
// DESIGN.md). It still rides real google.golang.org/grpc transport, gzip
// compression, and a registered encoding.Codec (codec.go); only the
// generated marshaling glue is substituted.
package regrpc

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	_ "google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/status"

	"github.com/ambrsb/shmbus/internal/regstore"
	"github.com/ambrsb/shmbus/internal/regtypes"
)

// DefaultAddr is the registry's default bind address.
const DefaultAddr = "0.0.0.0:40040"

const serviceName = "registry.RegistryService"

// RegistryServiceServer is the interface the RegistryService method
// handlers below call into.
// Server (below) implements it directly over a regstore.Store.
type RegistryServiceServer interface {
	Register(context.Context, *ComMsg) (*Result, error)
	Unregister(context.Context, *ComMsg) (*Result, error)
	Lookup(context.Context, *ComMsg) (*Result, error)
	AddCallback(context.Context, *ComMsg) (*Result, error)
	RemoveCallback(context.Context, *ComMsg) (*Result, error)
}

// Server implements RegistryServiceServer directly over a regstore.Store:
// a thin RPC facade, no state of its own beyond the listener.
type Server struct {
	store regstore.Store
	grpc  *grpc.Server

	lisMu sync.Mutex
	lis   net.Listener
}

// NewServer wraps store behind a gRPC server. The blank import of
// google.golang.org/grpc/encoding/gzip above registers gzip as a
// negotiable compressor; every RegistryServiceClient call actually turns
// it on by default via withCodec in client.go.
func NewServer(store regstore.Store, opts ...grpc.ServerOption) *Server {
	allOpts := append([]grpc.ServerOption{}, opts...)
	gs := grpc.NewServer(allOpts...)
	s := &Server{store: store, grpc: gs}
	RegisterRegistryServiceServer(gs, s)
	return s
}

// ListenAndServe binds addr (DefaultAddr if empty) and blocks serving RPCs
// until the listener or server is closed.
func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("regrpc: listen %q: %w", addr, err)
	}
	s.lisMu.Lock()
	s.lis = lis
	s.lisMu.Unlock()
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the underlying gRPC server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// Addr returns the listener's bound address, or nil before ListenAndServe
// has bound one. Useful for tests that bind an ephemeral port (":0") and
// need to learn which one was chosen.
func (s *Server) Addr() net.Addr {
	s.lisMu.Lock()
	defer s.lisMu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func toProtoItems(items []regtypes.RegItem) []RegItemProto {
	out := make([]RegItemProto, len(items))
	for i, it := range items {
		out[i] = RegItemProto{Name: it.Owner(), Location: it.Location().Name}
	}
	return out
}

func fromProtoItem(p RegItemProto) (regtypes.RegItem, error) {
	return regtypes.NewRegItem(p.Name, regtypes.NewNearLocation(p.Location))
}

func (s *Server) Register(ctx context.Context, msg *ComMsg) (*Result, error) {
	if len(msg.RegItem) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no RegItems were received")
	}
	for _, p := range msg.RegItem {
		ri, err := fromProtoItem(p)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid reg item: %v", err)
		}
		if err := s.store.Register(ri); err != nil {
			return nil, status.Errorf(codes.Internal, "register: %v", err)
		}
	}
	return &Result{Code: 0, ErrorMessage: "Success"}, nil
}

func (s *Server) Unregister(ctx context.Context, msg *ComMsg) (*Result, error) {
	if len(msg.RegItem) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no RegItems were received")
	}
	for _, p := range msg.RegItem {
		ri, err := fromProtoItem(p)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid reg item: %v", err)
		}
		if err := s.store.Unregister(ri); err != nil {
			return nil, status.Errorf(codes.Internal, "unregister: %v", err)
		}
	}
	return &Result{Code: 0, ErrorMessage: "Success"}, nil
}

func (s *Server) Lookup(ctx context.Context, msg *ComMsg) (*Result, error) {
	items, err := s.store.Lookup(regtypes.Filter(msg.Fltr.Definition))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "lookup: %v", err)
	}
	return &Result{
		Code:         int32(len(items)),
		ErrorMessage: "Success",
		RegItem:      toProtoItems(items),
	}, nil
}

// AddCallback is reserved: subscriptions are an in-process capability of
// regstore.Store, not yet exposed over RPC.
func (s *Server) AddCallback(ctx context.Context, msg *ComMsg) (*Result, error) {
	return nil, status.Error(codes.Unimplemented, "AddCallback is not exposed over RPC")
}

// RemoveCallback is reserved, for the same reason as AddCallback.
func (s *Server) RemoveCallback(ctx context.Context, msg *ComMsg) (*Result, error) {
	return nil, status.Error(codes.Unimplemented, "RemoveCallback is not exposed over RPC")
}

// RegisterRegistryServiceServer registers srv with gs the way a generated
// _RegistryService_serviceDesc registration would.
func RegisterRegistryServiceServer(gs grpc.ServiceRegistrar, srv RegistryServiceServer) {
	gs.RegisterService(&serviceDesc, srv)
}

func decodeComMsg(ctx context.Context, srv any, dec func(any) error, interceptor grpc.UnaryServerInterceptor, full string, call func(RegistryServiceServer, context.Context, *ComMsg) (*Result, error)) (any, error) {
	in := new(ComMsg)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return call(srv.(RegistryServiceServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
	handler := func(ctx context.Context, req any) (any, error) {
		return call(srv.(RegistryServiceServer), ctx, req.(*ComMsg))
	}
	return interceptor(ctx, in, info, handler)
}

func _RegistryService_Register_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return decodeComMsg(ctx, srv, dec, interceptor, "/"+serviceName+"/Register", RegistryServiceServer.Register)
}

func _RegistryService_Unregister_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return decodeComMsg(ctx, srv, dec, interceptor, "/"+serviceName+"/Unregister", RegistryServiceServer.Unregister)
}

func _RegistryService_Lookup_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return decodeComMsg(ctx, srv, dec, interceptor, "/"+serviceName+"/Lookup", RegistryServiceServer.Lookup)
}

func _RegistryService_AddCallback_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return decodeComMsg(ctx, srv, dec, interceptor, "/"+serviceName+"/AddCallback", RegistryServiceServer.AddCallback)
}

func _RegistryService_RemoveCallback_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return decodeComMsg(ctx, srv, dec, interceptor, "/"+serviceName+"/RemoveCallback", RegistryServiceServer.RemoveCallback)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RegistryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: _RegistryService_Register_Handler},
		{MethodName: "Unregister", Handler: _RegistryService_Unregister_Handler},
		{MethodName: "Lookup", Handler: _RegistryService_Lookup_Handler},
		{MethodName: "AddCallback", Handler: _RegistryService_AddCallback_Handler},
		{MethodName: "RemoveCallback", Handler: _RegistryService_RemoveCallback_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/registry.proto",
}
