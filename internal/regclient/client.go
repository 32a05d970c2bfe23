// Package regclient implements the two client roles the registry serves:
// a publisher (Spring) and a consumer (Extractor). Each stub owns its
// transport exclusively; neither is safe to share across goroutines by
// convention.
package regclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ambrsb/shmbus/internal/regerr"
	"github.com/ambrsb/shmbus/internal/regrpc"
	"github.com/ambrsb/shmbus/internal/regtypes"
)

func dial(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("regclient: dial %q: %w", endpoint, err)
	}
	return conn, nil
}

// SpringRegistryClient publishes and unpublishes a single owner's
// RegItems. Not safe for concurrent use.
type SpringRegistryClient struct {
	owner string
	conn  *grpc.ClientConn
	rpc   regrpc.RegistryServiceClient
}

// NewSpringRegistryClient dials endpoint and binds every Publish/Unpublish
// call on the returned client to owner.
func NewSpringRegistryClient(owner, endpoint string) (*SpringRegistryClient, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, err
	}
	return &SpringRegistryClient{
		owner: owner,
		conn:  conn,
		rpc:   regrpc.NewRegistryServiceClient(conn),
	}, nil
}

// Publish registers location under the bound owner.
func (c *SpringRegistryClient) Publish(ctx context.Context, location regtypes.BufferLocation) error {
	msg := &regrpc.ComMsg{RegItem: []regrpc.RegItemProto{{Name: c.owner, Location: location.Name}}}
	if _, err := c.rpc.Register(ctx, msg); err != nil {
		return fmt.Errorf("regclient: publish %q/%q: %w", c.owner, location.Name, regerr.ErrRegistrationFailed)
	}
	return nil
}

// Unpublish unregisters location from the bound owner.
func (c *SpringRegistryClient) Unpublish(ctx context.Context, location regtypes.BufferLocation) error {
	msg := &regrpc.ComMsg{RegItem: []regrpc.RegItemProto{{Name: c.owner, Location: location.Name}}}
	if _, err := c.rpc.Unregister(ctx, msg); err != nil {
		return fmt.Errorf("regclient: unpublish %q/%q: %w", c.owner, location.Name, regerr.ErrUnregistrationFailed)
	}
	return nil
}

// Close releases the underlying connection.
func (c *SpringRegistryClient) Close() error {
	return c.conn.Close()
}

// ExtractorRegistryClient looks up RegItems by owner filter. Not safe for
// concurrent use.
type ExtractorRegistryClient struct {
	conn *grpc.ClientConn
	rpc  regrpc.RegistryServiceClient
}

// NewExtractorRegistryClient dials endpoint.
func NewExtractorRegistryClient(endpoint string) (*ExtractorRegistryClient, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, err
	}
	return &ExtractorRegistryClient{conn: conn, rpc: regrpc.NewRegistryServiceClient(conn)}, nil
}

// Lookup returns every RegItem whose owner matches f.
func (c *ExtractorRegistryClient) Lookup(ctx context.Context, f regtypes.Filter) ([]regtypes.RegItem, error) {
	msg := &regrpc.ComMsg{Fltr: regrpc.FilterProto{Definition: string(f)}}
	res, err := c.rpc.Lookup(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("regclient: lookup %q: %w", f, regerr.ErrLookupFailed)
	}
	items := make([]regtypes.RegItem, 0, len(res.RegItem))
	for _, p := range res.RegItem {
		ri, err := regtypes.NewRegItem(p.Name, regtypes.NewNearLocation(p.Location))
		if err != nil {
			continue
		}
		items = append(items, ri)
	}
	return items, nil
}

// RegisterCallback is a documented no-op: callback subscriptions are not
// exposed over RPC yet, so it always returns ErrNotImplemented.
func (c *ExtractorRegistryClient) RegisterCallback(ctx context.Context, f regtypes.Filter, cb regtypes.Callback) error {
	return regerr.ErrNotImplemented
}

// Close releases the underlying connection.
func (c *ExtractorRegistryClient) Close() error {
	return c.conn.Close()
}
