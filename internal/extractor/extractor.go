// Package extractor is the consumer facade: it looks up a published
// channel in the registry, scans the result for the wanted channel name,
// and only then attaches to the shared-memory ring.
package extractor

import (
	"context"
	"fmt"

	"github.com/ambrsb/shmbus/internal/elem"
	"github.com/ambrsb/shmbus/internal/regclient"
	"github.com/ambrsb/shmbus/internal/regerr"
	"github.com/ambrsb/shmbus/internal/regtypes"
	"github.com/ambrsb/shmbus/internal/ring"
)

// Extractor owns one attached ring. Not safe for concurrent use by
// convention.
type Extractor struct {
	owner   string
	channel string
	ring    *ring.Ring
	reg     *regclient.ExtractorRegistryClient
}

// New looks up owner at endpoint, finds the RegItem whose location name
// equals channel, and attaches to its ring. regerr.ErrChannelNotFound if no
// such channel is published.
func New(ctx context.Context, owner, channel, endpoint string) (*Extractor, error) {
	reg, err := regclient.NewExtractorRegistryClient(endpoint)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	items, err := reg.Lookup(ctx, regtypes.Filter(owner))
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("extractor: lookup %q: %w", owner, err)
	}

	found := false
	for _, it := range items {
		if it.Location().Name == channel {
			found = true
			break
		}
	}
	if !found {
		reg.Close()
		return nil, fmt.Errorf("extractor: %q/%q: %w", owner, channel, regerr.ErrChannelNotFound)
	}

	ringName := owner + "_" + channel
	r, err := ring.Lookup(ringName)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("extractor: attach ring %q: %w", ringName, err)
	}

	return &Extractor{owner: owner, channel: channel, ring: r, reg: reg}, nil
}

// Pop dequeues the next ready record. ok is false on an empty ring; err is
// non-nil only on a hard failure, distinguishing empty-as-null from a
// fault per the module's null-indicator design.
func (e *Extractor) Pop() (el elem.Elem, ok bool, err error) {
	el, err = e.ring.Dequeue()
	if err == regerr.ErrQueueEmpty {
		return elem.Elem{}, false, nil
	}
	if err != nil {
		return elem.Elem{}, false, err
	}
	return el, true, nil
}

// Close detaches the ring and releases the registry connection.
func (e *Extractor) Close() error {
	defer e.reg.Close()
	return e.ring.Close()
}

// Owner returns the bound owner name.
func (e *Extractor) Owner() string { return e.owner }

// Channel returns the bound channel name.
func (e *Extractor) Channel() string { return e.channel }
