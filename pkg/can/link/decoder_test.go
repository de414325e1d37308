package link

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpgreen/ahrs/pkg/can"
)

type decoderStep struct {
	in     []byte
	expect Result
	final  Result
}

type decoderScript struct {
	steps []decoderStep
}

func script() *decoderScript {
	return &decoderScript{}
}

func (s *decoderScript) on(state State, in ...byte) *decoderScript {
	st := decoderStep{in: in, expect: Result{State: state}}
	st.final = st.expect
	s.steps = append(s.steps, st)
	return s
}

func (s *decoderScript) syncing(in ...byte) *decoderScript {
	return s.on(StateSyncing|StateReceiving, in...)
}

func (s *decoderScript) receiving(in ...byte) *decoderScript {
	return s.on(StateReady|StateReceiving, in...)
}

func (s *decoderScript) timeout() *decoderScript {
	s.steps = append(s.steps, decoderStep{})
	return s
}

func (s *decoderScript) then(r Result) *decoderScript {
	s.steps[len(s.steps)-1].final = r
	return s
}

func (s *decoderScript) ready() *decoderScript {
	return s.then(Result{State: StateReady})
}

func (s *decoderScript) readyAck() *decoderScript {
	return s.then(Result{Control: ctrlACK, State: StateReady})
}

func (s *decoderScript) resync() *decoderScript {
	return s.then(Result{Control: ctrlREQ, State: StateSyncing})
}

func (s *decoderScript) packet(seq, kind byte, data ...byte) *decoderScript {
	return s.then(Result{State: StateReady, Packet: &Packet{Seq: Seq(seq), Kind: kind, Data: data}})
}

func TestDecoder(t *testing.T) {
	frameBytes := FramePacket(can.MustFrame(0x100, 2, 7, 0, 1, 0, 125)).Encode()[2:]
	testCases := []struct {
		name  string
		steps []decoderStep
	}{
		{
			name: "handshake then packets",
			steps: script().
				syncing(ctrlACK, 1).ready().
				receiving(1, 0x01).packet(1, KindPing).
				receiving(2, 0x22, 9, 8).packet(2, KindPong, 9, 8).
				receiving(3, 0x80).packet(3, 0x80).
				receiving(append([]byte{4, 0x70}, frameBytes...)...).
				packet(4, KindFrame, frameBytes[1:]...).
				build(),
		},
		{
			name: "extended length zero",
			steps: script().
				syncing(ctrlACK, 0x10).ready().
				receiving(0x10, 0x71, 0).packet(0x10, KindPing).
				build(),
		},
		{
			name: "timeout while syncing",
			steps: script().
				timeout().resync().
				syncing(ctrlACK).
				timeout().resync().
				build(),
		},
		{
			name: "garbage before sync",
			steps: script().
				on(StateSyncing, 1, 2, 0x80, 0xf0, 0xf5).
				syncing(ctrlACK, 1).ready().
				build(),
		},
		{
			name: "peer request",
			steps: script().
				syncing(ctrlREQ, 5).readyAck().
				build(),
		},
		{
			name: "peer request with bad sequence",
			steps: script().
				syncing(ctrlREQ, 0xf0).resync().
				syncing(ctrlACK, 1).ready().
				build(),
		},
		{
			name: "request after sync",
			steps: script().
				syncing(ctrlACK, 1).ready().
				syncing(ctrlREQ, 7).readyAck().
				receiving(7, 0).packet(7, KindFrame).
				build(),
		},
		{
			name: "late ack",
			steps: script().
				syncing(ctrlACK, 1).ready().
				receiving(ctrlACK, 1).ready().
				receiving(ctrlACK, 2).resync().
				build(),
		},
		{
			name: "sequence mismatch",
			steps: script().
				syncing(ctrlACK, 1).ready().
				on(StateReady, 2).resync().
				build(),
		},
		{
			name: "length too large",
			steps: script().
				syncing(ctrlACK, 1).ready().
				receiving(1, 0x70, 0x80).resync().
				build(),
		},
		{
			name: "timeout mid packet",
			steps: script().
				syncing(ctrlACK, 1).ready().
				receiving(1, 0x30, 1).
				timeout().resync().
				build(),
		},
		{
			name: "timeout when idle",
			steps: script().
				syncing(ctrlACK, 1).ready().
				timeout().ready().
				build(),
		},
		{
			name: "sequence wraps",
			steps: script().
				syncing(ctrlACK, 0xef).ready().
				receiving(0xef, 0).packet(0xef, 0).
				receiving(1, 0).packet(1, 0).
				build(),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var d Decoder
			require.Equal(t, Result{Control: ctrlREQ, State: StateSyncing}, d.Reset())
			for n, st := range tc.steps {
				if st.in == nil {
					require.Equal(t, st.final, d.Timeout(), "step %d", n)
					continue
				}
				for i, b := range st.in {
					expect := st.expect
					if i == len(st.in)-1 {
						expect = st.final
					}
					require.Equal(t, expect, d.Feed(b), fmt.Sprintf("step %d byte %d", n, i))
				}
			}
		})
	}
}

func (s *decoderScript) build() []decoderStep {
	return s.steps
}

func TestResultTimer(t *testing.T) {
	require.Equal(t, TimerRestart, Result{Control: ctrlREQ}.Timer())
	require.Equal(t, TimerRestart, Result{State: StateReady | StateReceiving}.Timer())
	require.Equal(t, TimerStop, Result{State: StateReady}.Timer())
	require.Equal(t, TimerKeep, Result{State: StateSyncing}.Timer())
}
