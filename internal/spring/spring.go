// Package spring is the producer facade: it publishes a named channel to
// the registry, then owns the shared-memory ring backing it. Publication
// comes first, ring initialization second: an Extractor that looks the
// channel up in between finds it published but fails to attach, because
// the ring does not exist yet.
package spring

import (
	"context"
	"fmt"

	"github.com/ambrsb/shmbus/internal/elem"
	"github.com/ambrsb/shmbus/internal/regclient"
	"github.com/ambrsb/shmbus/internal/regtypes"
	"github.com/ambrsb/shmbus/internal/ring"
)

// Spring owns one published channel's ring. Not safe for concurrent use by
// convention, though the ring itself is a safe MPMC queue.
type Spring struct {
	owner   string
	channel string
	ring    *ring.Ring
	reg     *regclient.SpringRegistryClient
}

// New publishes {owner, channel} to the registry at endpoint and
// initializes a capacity-slot ring named "<owner>_<channel>".
func New(ctx context.Context, owner, channel string, capacity uint64, elemSize int, endpoint string) (*Spring, error) {
	reg, err := regclient.NewSpringRegistryClient(owner, endpoint)
	if err != nil {
		return nil, fmt.Errorf("spring: %w", err)
	}

	loc := regtypes.NewNearLocation(channel)
	if err := reg.Publish(ctx, loc); err != nil {
		reg.Close()
		return nil, fmt.Errorf("spring: publish %q/%q: %w", owner, channel, err)
	}

	ringName := owner + "_" + channel
	r, err := ring.Init(ringName, capacity, elemSize)
	if err != nil {
		reg.Unpublish(ctx, loc)
		reg.Close()
		return nil, fmt.Errorf("spring: init ring %q: %w", ringName, err)
	}

	return &Spring{owner: owner, channel: channel, ring: r, reg: reg}, nil
}

// Push enqueues data under id. A full ring surfaces regerr.ErrQueueFull for
// the caller to drop-or-retry; Push never blocks.
func (s *Spring) Push(data string, id uint64) error {
	return s.ring.Enqueue(elem.New(id, data))
}

// Close unpublishes the channel and detaches the ring.
func (s *Spring) Close(ctx context.Context) error {
	defer s.reg.Close()
	err := s.reg.Unpublish(ctx, regtypes.NewNearLocation(s.channel))
	if cerr := s.ring.Close(); err == nil {
		err = cerr
	}
	return err
}

// Owner returns the bound owner name.
func (s *Spring) Owner() string { return s.owner }

// Channel returns the bound channel name.
func (s *Spring) Channel() string { return s.channel }
