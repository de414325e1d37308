package ahrs

import (
	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/indicator"
)

type reply struct {
	req *canaero.Request
	msg canaero.Message
}

type fakeTransport struct {
	pending   []func()
	sent      []canaero.Message
	sendErr   error
	replies   []reply
	cleared   int
	seqResets int
	reinits   []bool
	reinitErr error
	onReinit  func()
	wake      chan struct{}

	cfg         canaero.Config
	initErr     error
	selfTestErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{wake: make(chan struct{}, 1)}
}

func (t *fakeTransport) PollInterrupt() bool { return len(t.pending) > 0 }

func (t *fakeTransport) DispatchPending() {
	if len(t.pending) == 0 {
		return
	}
	fn := t.pending[0]
	t.pending = t.pending[1:]
	fn()
}

func (t *fakeTransport) Send(msg canaero.Message) error {
	t.sent = append(t.sent, msg)
	return t.sendErr
}

func (t *fakeTransport) SendServiceReply(req *canaero.Request, tmpl *canaero.ServiceTemplate) error {
	msg := canaero.Message{ID: req.ResponseID(), Type: tmpl.Type, Service: uint8(tmpl.Service), Code: tmpl.Code}
	if tmpl.Producer != nil {
		tmpl.Producer(msg.Data[:])
	}
	t.replies = append(t.replies, reply{req: req, msg: msg})
	return nil
}

func (t *fakeTransport) ClearTxBuffers()        { t.cleared++ }
func (t *fakeTransport) ResetSequenceCounters() { t.seqResets++ }

func (t *fakeTransport) Reinit(highPriorityOnly bool) error {
	if t.onReinit != nil {
		t.onReinit()
	}
	if t.reinitErr != nil {
		return t.reinitErr
	}
	t.reinits = append(t.reinits, highPriorityOnly)
	return nil
}

func (t *fakeTransport) Wake() <-chan struct{} { return t.wake }

func (t *fakeTransport) Init(cfg canaero.Config) error {
	if t.initErr != nil {
		return t.initErr
	}
	t.cfg = cfg
	return nil
}

func (t *fakeTransport) SelfTest() error { return t.selfTestErr }

func (t *fakeTransport) StandardServices() canaero.DispatchTable {
	var table canaero.DispatchTable
	table[canaero.IDS] = canaero.HandlerFunc(func(*canaero.Request) error { return nil })
	return table
}

func (t *fakeTransport) sentIDs() []uint32 {
	ids := make([]uint32, 0, len(t.sent))
	for _, m := range t.sent {
		ids = append(ids, m.ID)
	}
	return ids
}

func (t *fakeTransport) lastReply() canaero.Message {
	return t.replies[len(t.replies)-1].msg
}

type nopWatchdog struct {
	refreshes int
}

func (w *nopWatchdog) Refresh() { w.refreshes++ }

// recorder records indicator writes.
type recorder struct {
	writes []bool
}

func (r *recorder) Set(on bool) { r.writes = append(r.writes, on) }

var _ indicator.Indicator = (*recorder)(nil)

func request(svc canaero.ServiceCode, code uint8, typ canaero.DataType, params ...byte) *canaero.Request {
	msg := canaero.Message{ID: canaero.HighPriorityRequestID(0), Node: 2, Type: typ, Service: uint8(svc), Code: code}
	copy(msg.Data[:], params)
	return &canaero.Request{Message: msg, Raw: msg.Frame()}
}
