package canaero

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/can"
)

// serve dispatches stack events until ctx is done.
func (c *stackTestCtx) serve() {
	go func() {
		for {
			select {
			case <-c.stack.Wake():
				for c.stack.PollInterrupt() {
					c.stack.DispatchPending()
				}
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

func TestClient(t *testing.T) {
	s := newStackTest(t, DefaultConfig())
	defer s.close()
	cfg := s.stack.Config()
	cfg.Services = s.stack.StandardServices()
	require.NoError(t, s.stack.Init(cfg))
	s.serve()

	mux := can.NewMux(s.peer)
	go mux.Run(s.ctx)
	client := NewClient(mux, 0)

	hw, sw, err := client.Identify(s.ctx, 2)
	require.NoError(t, err)
	require.Equal(t, uint8(4), hw)
	require.Equal(t, uint8(1), sw)

	_, err = client.Request(s.ctx, 2, Message{Type: UCHAR, Service: uint8(BSS), Data: [4]byte{9}})
	require.Error(t, err)
	rejected, ok := err.(*RejectedError)
	require.True(t, ok)
	require.Equal(t, BSS, rejected.Service)

	client.Timeout = 50 * time.Millisecond
	_, err = client.Query(s.ctx, 9, IDS, 0)
	require.Equal(t, ErrNoReply, err)

	// the low priority request identifier is filtered out by default
	client.LowPriority = true
	_, err = client.Query(s.ctx, 2, IDS, 0)
	require.Equal(t, ErrNoReply, err)
}

func TestClientCanceled(t *testing.T) {
	bus := can.NewLoopbackBus()
	defer bus.Close()
	mux := can.NewMux(bus.Open())
	ctx, cancel := context.WithCancel(context.Background())
	go mux.Run(ctx)
	cancel()
	_, err := NewClient(mux, 0).Query(ctx, 2, IDS, 0)
	require.Error(t, err)
}
