package canaero

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/can"
)

// Buffer sizes.
const (
	RecvBufLen = 20
	TxBufLen   = 30
)

var (
	// ErrNotInitialized is returned before a successful Init.
	ErrNotInitialized = errors.New("canaero: stack not initialized")
	// ErrTxTimeout is returned when the transmit buffer stayed full for TxWait.
	ErrTxTimeout = errors.New("canaero: transmit buffer full")
)

// Stack is the CANaerospace node stack on top of a Bus.
//
// Run pumps frames between the bus and the stack buffers. Everything else is
// called from the node main loop: received events are only delivered by
// DispatchPending, so callbacks and service handlers run on that goroutine.
type Stack struct {
	Bus can.Bus

	lock        sync.Mutex
	cfg         Config
	filter      can.FrameFilter
	initialized bool
	bitRate     uint32
	rxQueue     []can.Frame
	overruns    uint32
	seq         map[uint32]uint8

	irqCh chan struct{}
	txCh  chan can.Frame
}

// NewStack creates an uninitialized stack.
func NewStack(bus can.Bus) *Stack {
	return &Stack{
		Bus:     bus,
		rxQueue: make([]can.Frame, 0, RecvBufLen),
		seq:     make(map[uint32]uint8),
		irqCh:   make(chan struct{}, 1),
		txCh:    make(chan can.Frame, TxBufLen),
	}
}

// Init installs the configuration, with a bit rate stored by the baudrate
// setting service taking precedence. On an initialized stack it reinitializes:
// receive delivery is suspended while buffers, filters and sequence
// counters are reset.
func (s *Stack) Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.bitRate != 0 {
		cfg.BitRate = s.bitRate
	}
	s.install(cfg)
	glog.Infof("canaero: node %d channel %d %d bit/s high priority only=%v",
		cfg.NodeID, cfg.ServiceChannel, cfg.BitRate, cfg.HighPriorityOnly)
	return nil
}

// Reinit reinitializes with the current configuration and a new filter mode.
// A bit rate stored by the baudrate setting service takes effect here.
func (s *Stack) Reinit(highPriorityOnly bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	cfg := s.cfg
	cfg.HighPriorityOnly = highPriorityOnly
	if s.bitRate != 0 {
		cfg.BitRate = s.bitRate
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.install(cfg)
	glog.Infof("canaero: reinitialized, high priority only=%v", highPriorityOnly)
	return nil
}

func (s *Stack) install(cfg Config) {
	s.cfg = cfg
	s.filter = cfg.Filter()
	s.bitRate = 0
	s.rxQueue = s.rxQueue[:0]
	s.seq = make(map[uint32]uint8)
	s.drainTx()
	s.initialized = true
}

// Config returns a copy of the installed configuration.
func (s *Stack) Config() Config {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cfg
}

// SelfTest verifies the stack is initialized and the bus controller responds.
func (s *Stack) SelfTest() error {
	s.lock.Lock()
	ok := s.initialized
	s.lock.Unlock()
	if !ok {
		return ErrNotInitialized
	}
	if st, ok := s.Bus.(can.SelfTester); ok {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return st.SelfTest(ctx)
	}
	return nil
}

// Run pumps frames until ctx is done or the bus fails.
func (s *Stack) Run(ctx context.Context) error {
	txErrCh := make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		txErrCh <- s.transmitLoop(subCtx)
	}()
	err := s.receiveLoop(ctx)
	cancel()
	<-txErrCh
	return err
}

func (s *Stack) receiveLoop(ctx context.Context) error {
	for {
		f, err := s.Bus.Receive(ctx)
		if err != nil {
			return err
		}
		if s.enqueue(f) {
			select {
			case s.irqCh <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Stack) enqueue(f can.Frame) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.initialized || (!f.Err && !s.filter.Accept(f)) {
		return false
	}
	if len(s.rxQueue) >= RecvBufLen {
		s.overruns++
		glog.Warningf("canaero: receive buffer overrun, dropped %s", f)
		return false
	}
	s.rxQueue = append(s.rxQueue, f)
	return true
}

func (s *Stack) transmitLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-s.txCh:
			if err := s.Bus.Send(ctx, f); err != nil && ctx.Err() == nil {
				glog.Warningf("canaero: transmit %s: %v", f, err)
			}
		}
	}
}

// Wake is signalled when events are queued.
func (s *Stack) Wake() <-chan struct{} {
	return s.irqCh
}

// PollInterrupt reports whether an event is waiting for DispatchPending.
func (s *Stack) PollInterrupt() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.rxQueue) > 0
}

// Overruns counts frames dropped because the receive buffer was full.
func (s *Stack) Overruns() uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.overruns
}

// DispatchPending delivers at most one queued event.
func (s *Stack) DispatchPending() {
	s.lock.Lock()
	if len(s.rxQueue) == 0 {
		s.lock.Unlock()
		return
	}
	f := s.rxQueue[0]
	s.rxQueue = append(s.rxQueue[:0], s.rxQueue[1:]...)
	cfg := s.cfg
	s.lock.Unlock()

	switch {
	case f.Err:
		state := f.BusState()
		glog.Warningf("*** can error: %s (%s)", state, f)
		if cfg.OnBusFault != nil {
			cfg.OnBusFault(state)
		}
	case IsEmergency(f.ID):
		ev, err := DecodeEmergencyEvent(f)
		if err != nil {
			glog.Warningf("canaero: bad emergency event %s: %v", f, err)
			return
		}
		if cfg.OnEmergency != nil {
			cfg.OnEmergency(ev)
		}
	default:
		s.serve(&cfg, f)
	}
}

func (s *Stack) serve(cfg *Config, f can.Frame) {
	channel, low, ok := ServiceChannel(f.ID)
	if !ok || channel != cfg.ServiceChannel {
		return
	}
	msg, err := DecodeMessage(f)
	if err != nil {
		glog.V(2).Infof("canaero: ignored request %s: %v", f, err)
		return
	}
	if msg.Node != 0 && msg.Node != cfg.NodeID {
		return
	}
	req := &Request{Message: msg, Raw: f, Channel: channel, LowPriority: low}
	h := cfg.Services.Lookup(req.ServiceCode())
	if h == nil {
		glog.V(2).Infof("canaero: no handler for %s", req.ServiceCode())
		return
	}
	if err := h.HandleRequest(req); err != nil {
		glog.Warningf("canaero: %s code %d reply: %v", req.ServiceCode(), req.Code, err)
	}
}

// Send transmits normal operation data. The node id and the per-identifier
// message code sequence are filled in.
func (s *Stack) Send(msg Message) error {
	s.lock.Lock()
	if !s.initialized {
		s.lock.Unlock()
		return ErrNotInitialized
	}
	msg.Node = s.cfg.NodeID
	msg.Code = s.seq[msg.ID]
	s.seq[msg.ID] = msg.Code + 1
	wait := s.cfg.TxWait
	s.lock.Unlock()
	return s.transmit(msg.Frame(), wait)
}

// SendServiceReply answers req using the template.
func (s *Stack) SendServiceReply(req *Request, tmpl *ServiceTemplate) error {
	msg := Message{
		ID:      req.ResponseID(),
		Type:    tmpl.Type,
		Service: uint8(tmpl.Service),
		Code:    tmpl.Code,
	}
	if tmpl.Producer != nil {
		tmpl.Producer(msg.Data[:])
	}
	s.lock.Lock()
	if !s.initialized {
		s.lock.Unlock()
		return ErrNotInitialized
	}
	msg.Node = s.cfg.NodeID
	wait := s.cfg.TxWait
	s.lock.Unlock()
	return s.transmit(msg.Frame(), wait)
}

func (s *Stack) transmit(f can.Frame, wait time.Duration) error {
	select {
	case s.txCh <- f:
		return nil
	default:
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case s.txCh <- f:
		return nil
	case <-timer.C:
		return ErrTxTimeout
	}
}

// ClearTxBuffers discards frames not yet handed to the bus.
func (s *Stack) ClearTxBuffers() {
	s.drainTx()
}

func (s *Stack) drainTx() {
	for {
		select {
		case <-s.txCh:
		default:
			return
		}
	}
}

// ResetSequenceCounters restarts every message code sequence at 0.
func (s *Stack) ResetSequenceCounters() {
	s.lock.Lock()
	s.seq = make(map[uint32]uint8)
	s.lock.Unlock()
}
