package canaero

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gpgreen/ahrs/pkg/can"
)

// DefaultRequestTimeout bounds waiting for a service reply.
const DefaultRequestTimeout = time.Second

// ErrNoReply is returned when no reply arrives in time.
var ErrNoReply = errors.New("canaero: no reply")

// RejectedError is a reply carrying the invalid code.
type RejectedError struct {
	Service ServiceCode
	Code    uint8
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("canaero: %s code %d rejected", e.Service, e.Code)
}

// Client issues node service requests on a channel and waits for replies.
// Mux must be running.
type Client struct {
	Mux         *can.Mux
	Channel     uint8
	LowPriority bool
	Timeout     time.Duration
}

// NewClient creates a client on the high priority request identifier.
func NewClient(mux *can.Mux, channel uint8) *Client {
	return &Client{Mux: mux, Channel: channel, Timeout: DefaultRequestTimeout}
}

func (c *Client) requestID() uint32 {
	if c.LowPriority {
		return LowPriorityRequestID(c.Channel)
	}
	return HighPriorityRequestID(c.Channel)
}

// Request sends req to node and returns the first matching reply: same
// service, same code or the invalid code.
func (c *Client) Request(ctx context.Context, node uint8, req Message) (Message, error) {
	req.ID, req.Node = c.requestID(), node
	respID := ResponseID(req.ID)
	sub := c.Mux.Subscribe(can.And(can.ByID(respID), can.DataOnly()), 4)
	defer sub.Close()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Mux.Send(ctx, req.Frame()); err != nil {
		return Message{}, err
	}
	for {
		select {
		case f, ok := <-sub.C:
			if !ok {
				return Message{}, can.ErrClosed
			}
			reply, err := DecodeMessage(f)
			if err != nil || reply.Service != req.Service {
				continue
			}
			if reply.Code == InvalidCode {
				return reply, &RejectedError{Service: ServiceCode(req.Service), Code: req.Code}
			}
			if reply.Code == req.Code {
				return reply, nil
			}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Message{}, ErrNoReply
			}
			return Message{}, ctx.Err()
		}
	}
}

// Query sends a NODATA request of service and code.
func (c *Client) Query(ctx context.Context, node uint8, service ServiceCode, code uint8) (Message, error) {
	return c.Request(ctx, node, Message{Type: NODATA, Service: uint8(service), Code: code})
}

// Identify queries IDS.
func (c *Client) Identify(ctx context.Context, node uint8) (hw, sw uint8, err error) {
	reply, err := c.Query(ctx, node, IDS, 0)
	if err != nil {
		return 0, 0, err
	}
	if reply.Type != UCHAR4 {
		return 0, 0, fmt.Errorf("canaero: IDS reply type %s", reply.Type)
	}
	return reply.Data[0], reply.Data[1], nil
}
