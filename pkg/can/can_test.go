package can

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameValidate(t *testing.T) {
	testCases := []struct {
		name  string
		frame Frame
		err   error
	}{
		{name: "standard", frame: Frame{ID: 0x7FF, Len: 8}},
		{name: "standard id too large", frame: Frame{ID: 0x800}, err: ErrInvalidID},
		{name: "extended", frame: Frame{ID: 0x1FFFFFFF, Extended: true}},
		{name: "extended id too large", frame: Frame{ID: 0x20000000, Extended: true}, err: ErrInvalidID},
		{name: "length", frame: Frame{ID: 1, Len: 9}, err: ErrInvalidLen},
		{name: "error frame", frame: ErrorFrame(BusStateOff)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.err, tc.frame.Validate())
		})
	}
}

func TestFrameBinary(t *testing.T) {
	f := MustFrame(0x101, 0x02, 0x02, 0x00, 0x05, 0x3f, 0x80, 0x00, 0x00)
	b, err := f.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, FrameSize)
	require.Equal(t, []byte{0x01, 0x01, 0, 0, 8, 0, 0, 0}, b[:8])

	var out Frame
	require.NoError(t, out.UnmarshalBinary(b))
	require.Equal(t, f, out)

	e := ErrorFrame(BusStatePassive)
	b, err = e.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, out.UnmarshalBinary(b))
	require.True(t, out.Err)
	require.Equal(t, BusStatePassive, out.BusState())

	require.Error(t, out.UnmarshalBinary(b[:8]))
}

func TestFrameString(t *testing.T) {
	require.Equal(t, "080 [4] 02 00 0C 00", MustFrame(0x80, 2, 0, 12, 0).String())
	require.Equal(t, "ERR 00000040 [8] 00 00 00 00 00 00 00 00", ErrorFrame(BusStateOff).String())
}

func TestBusState(t *testing.T) {
	for _, state := range []BusState{BusStateOff, BusStatePassive, BusStateWarning, BusStateOther} {
		require.Equal(t, state, ErrorFrame(state).BusState(), state.String())
	}
	require.Equal(t, BusStateOther, MustFrame(0x40).BusState())
}

func TestFilters(t *testing.T) {
	eed := ByRange(0, 127)
	f := And(StandardOnly(), DataOnly(), Or(eed, ByID(128)))
	require.True(t, f(MustFrame(0)))
	require.True(t, f(MustFrame(127)))
	require.True(t, f(MustFrame(128)))
	require.False(t, f(MustFrame(129)))
	require.False(t, f(Frame{ID: 5, RTR: true}))
	require.False(t, f(Frame{ID: 5, Extended: true}))
	require.False(t, f(ErrorFrame(BusStateOff)))
	require.True(t, Not(f)(MustFrame(2000)))
	require.True(t, ByMask(0x123, 0x0F0)(MustFrame(0x721)))
	require.True(t, FrameFilter(nil).Accept(MustFrame(1)))
}

func TestLoopback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bus := NewLoopbackBus()
	a, b := bus.Open(), bus.Open()
	require.NoError(t, a.Send(ctx, MustFrame(0x100, 1, 2)))
	f, err := b.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(0x100), f.ID)
	require.Equal(t, []byte{1, 2}, f.Payload())

	bus.Inject(ErrorFrame(BusStateOff))
	for _, ep := range []Bus{a, b} {
		f, err = ep.Receive(ctx)
		require.NoError(t, err)
		require.Equal(t, BusStateOff, f.BusState())
	}

	require.NoError(t, b.Close())
	_, err = b.Receive(ctx)
	require.Equal(t, ErrClosed, err)
	require.NoError(t, bus.Close())
	require.Equal(t, ErrClosed, a.Send(ctx, MustFrame(1)))
}

func TestMux(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLoopbackBus()
	src := bus.Open()
	mux := NewMux(NewLoggedBus(bus.Open(), "mux", 2))
	low := mux.Subscribe(ByRange(0, 0xFF), 4)
	high := mux.Subscribe(ByRange(0x100, 0x7FF), 4)
	done := make(chan error, 1)
	go func() { done <- mux.Run(ctx) }()

	require.NoError(t, src.Send(ctx, MustFrame(0x10)))
	require.NoError(t, src.Send(ctx, MustFrame(0x200)))
	require.Equal(t, uint32(0x10), (<-low.C).ID)
	require.Equal(t, uint32(0x200), (<-high.C).ID)

	require.NoError(t, low.Close())
	cancel()
	require.Equal(t, context.Canceled, <-done)
	_, ok := <-high.C
	require.False(t, ok)
}

func TestLoggedBusFilter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bus := NewLoopbackBus()
	defer bus.Close()
	peer := bus.Open()
	var seen []uint32
	logged := NewLoggedBus(bus.Open(), "filtered", 0)
	logged.Filter = func(f Frame) bool {
		seen = append(seen, f.ID)
		return f.ID == 0x100
	}

	require.NoError(t, logged.Send(ctx, MustFrame(0x100, 1)))
	require.NoError(t, peer.Send(ctx, MustFrame(0x200, 2)))
	f, err := logged.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(0x200), f.ID)
	require.Equal(t, []uint32{0x100, 0x200}, seen)

	logged.Options = LogRead
	require.NoError(t, logged.Send(ctx, MustFrame(0x101)))
	require.Equal(t, []uint32{0x100, 0x200}, seen)
}
