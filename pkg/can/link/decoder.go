package link

// State is the synchronisation state of the link.
type State int

// State flags.
const (
	StateSyncing   State = 0
	StateReady     State = 0x01
	StateReceiving State = 0x02
)

// Ready reports whether packets can be exchanged.
func (s State) Ready() bool {
	return s&StateReady != 0
}

// Receiving reports whether a handshake or packet is partially received.
func (s State) Receiving() bool {
	return s&StateReceiving != 0
}

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateReady:
		return "ready"
	case StateReady | StateReceiving:
		return "receiving"
	}
	return "handshake"
}

// Control bytes. They are followed by the sender's next sequence number.
const (
	ctrlREQ byte = 0xff
	ctrlACK byte = 0xfe
)

// TimerAction tells the caller what to do with the resync timer.
type TimerAction int

// Timer actions.
const (
	TimerKeep TimerAction = iota
	TimerRestart
	TimerStop
)

// Result is the outcome of feeding the decoder.
type Result struct {
	// Control is a control byte to send, 0 for none.
	Control byte
	State   State
	Packet  *Packet
}

// Timer decides what happens to the resync timer after r.
func (r Result) Timer() TimerAction {
	switch {
	case r.State.Receiving() || r.Control == ctrlREQ:
		return TimerRestart
	case r.State.Ready():
		return TimerStop
	}
	return TimerKeep
}

type phase int

const (
	awaitSync    phase = iota // REQ sent, waiting for REQ or ACK
	awaitReqSeq               // peer sequence after REQ
	awaitAckSeq               // peer sequence after ACK
	awaitPacket               // synced, next packet sequence
	awaitLateAck              // ACK while synced, peer sequence must match
	awaitKind
	awaitLen
	awaitData
)

// Decoder is the receive side state machine. A sequence mismatch or
// a malformed header sends it back to awaitSync with a REQ.
type Decoder struct {
	peer  Seq
	phase phase
	pkt   *Packet
	got   int
}

// State returns the synchronisation state.
func (d *Decoder) State() State {
	switch {
	case d.phase == awaitSync:
		return StateSyncing
	case d.phase == awaitPacket:
		return StateReady
	case d.phase > awaitPacket:
		return StateReady | StateReceiving
	}
	return StateSyncing | StateReceiving
}

func (d *Decoder) result(ctrl byte, pkt *Packet) Result {
	return Result{Control: ctrl, State: d.State(), Packet: pkt}
}

// Reset drops any partial packet and starts a handshake.
func (d *Decoder) Reset() Result {
	d.pkt = nil
	return d.result(d.resync(), nil)
}

// Timeout is called when the resync timer fires.
func (d *Decoder) Timeout() Result {
	var ctrl byte
	if d.phase != awaitPacket {
		ctrl = d.resync()
	}
	return d.result(ctrl, nil)
}

// Feed consumes one received byte.
func (d *Decoder) Feed(b byte) Result {
	ctrl, pkt := d.feed(b)
	return d.result(ctrl, pkt)
}

func (d *Decoder) resync() byte {
	d.phase = awaitSync
	return ctrlREQ
}

func (d *Decoder) feed(b byte) (byte, *Packet) {
	switch d.phase {
	case awaitSync:
		if b == ctrlREQ {
			d.phase = awaitReqSeq
		} else if b == ctrlACK {
			d.phase = awaitAckSeq
		}
	case awaitReqSeq, awaitAckSeq:
		seq := Seq(b)
		if !seq.Valid() {
			return d.resync(), nil
		}
		ack := d.phase == awaitReqSeq
		d.peer, d.phase = seq, awaitPacket
		if ack {
			return ctrlACK, nil
		}
	case awaitPacket:
		switch {
		case b == ctrlREQ:
			d.phase = awaitReqSeq
		case b == ctrlACK:
			d.phase = awaitLateAck
		case Seq(b) != d.peer:
			return d.resync(), nil
		default:
			d.pkt = &Packet{Seq: d.peer}
			d.peer = d.peer.Next()
			d.phase = awaitKind
		}
	case awaitLateAck:
		if Seq(b) != d.peer {
			return d.resync(), nil
		}
		d.phase = awaitPacket
	case awaitKind:
		d.pkt.Kind = b & kindMask
		switch n := int(b>>lenShift) & lenInline; n {
		case 0:
			return 0, d.complete()
		case lenInline:
			d.phase = awaitLen
		default:
			d.startData(n)
		}
	case awaitLen:
		switch {
		case b > maxDataLen:
			return d.resync(), nil
		case b == 0:
			return 0, d.complete()
		}
		d.startData(int(b))
	case awaitData:
		d.pkt.Data[d.got] = b
		if d.got++; d.got == len(d.pkt.Data) {
			return 0, d.complete()
		}
	}
	return 0, nil
}

func (d *Decoder) startData(n int) {
	d.pkt.Data, d.got = make([]byte, n), 0
	d.phase = awaitData
}

func (d *Decoder) complete() *Packet {
	pkt := d.pkt
	d.pkt, d.phase = nil, awaitPacket
	return pkt
}
