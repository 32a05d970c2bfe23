package regrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding/gzip"
)

// RegistryServiceClient is the generated-style client interface for
// RegistryService.
type RegistryServiceClient interface {
	Register(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error)
	Unregister(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error)
	Lookup(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error)
	AddCallback(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error)
	RemoveCallback(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error)
}

type registryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRegistryServiceClient builds a client stub over cc, the same shape as
// a generated New<Service>Client constructor.
func NewRegistryServiceClient(cc grpc.ClientConnInterface) RegistryServiceClient {
	return &registryServiceClient{cc: cc}
}

func (c *registryServiceClient) Register(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error) {
	out := new(Result)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Register", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryServiceClient) Unregister(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error) {
	out := new(Result)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Unregister", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryServiceClient) Lookup(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error) {
	out := new(Result)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Lookup", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryServiceClient) AddCallback(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error) {
	out := new(Result)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AddCallback", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryServiceClient) RemoveCallback(ctx context.Context, in *ComMsg, opts ...grpc.CallOption) (*Result, error) {
	out := new(Result)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RemoveCallback", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// withCodec prepends the call options that select the gob content-subtype
// registered in codec.go and turn on gzip compression by default. They go
// first so an explicit option passed by the caller can still override them
// (grpc applies CallOptions in order, last write wins).
func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{
		grpc.CallContentSubtype(codecName),
		grpc.UseCompressor(gzip.Name),
	}, opts...)
}
