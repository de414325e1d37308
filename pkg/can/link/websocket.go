package link

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/gpgreen/ahrs/pkg/can"
)

// DialWebsocket connects to a websocket server and returns a link over it.
func DialWebsocket(url, origin string) (*Link, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	l := New(conn)
	l.Name = url
	return l, nil
}

// Hub is a can.Bus served over websockets. Each connected peer gets its own
// link; received frames from all peers are merged and sent frames go to
// every synchronised peer.
type Hub struct {
	lock  sync.Mutex
	links map[*Link]struct{}
	rxCh  chan can.Frame
	done  chan struct{}
	once  sync.Once
}

// NewHub creates a hub without peers.
func NewHub() *Hub {
	return &Hub{
		links: make(map[*Link]struct{}),
		rxCh:  make(chan can.Frame, RecvBufLen),
		done:  make(chan struct{}),
	}
}

// Handler returns the websocket handler accepting peers.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	l := New(conn)
	l.Name = conn.Request().RemoteAddr

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	h.lock.Lock()
	h.links[l] = struct{}{}
	h.lock.Unlock()
	glog.Infof("hub: peer %s connected", l.Name)
	defer func() {
		h.lock.Lock()
		delete(h.links, l)
		h.lock.Unlock()
		l.Close()
		glog.Infof("hub: peer %s disconnected", l.Name)
	}()

	go func() {
		for {
			f, err := l.Receive(ctx)
			if err != nil {
				return
			}
			select {
			case h.rxCh <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		glog.Warningf("hub: peer %s: %v", l.Name, err)
	}
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.links)
}

// Send implements can.Bus. Peers still synchronising miss the frame.
func (h *Hub) Send(ctx context.Context, f can.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	select {
	case <-h.done:
		return can.ErrClosed
	default:
	}
	h.lock.Lock()
	links := make([]*Link, 0, len(h.links))
	for l := range h.links {
		links = append(links, l)
	}
	h.lock.Unlock()
	for _, l := range links {
		if err := l.Send(ctx, f); err != nil && err != ErrNotReady {
			glog.V(1).Infof("hub: send to %s: %v", l.Name, err)
		}
	}
	return nil
}

// Receive implements can.Bus.
func (h *Hub) Receive(ctx context.Context) (can.Frame, error) {
	select {
	case f := <-h.rxCh:
		return f, nil
	case <-h.done:
		return can.Frame{}, can.ErrClosed
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	}
}

// Close disconnects all peers.
func (h *Hub) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}
