package canaero

import "github.com/gpgreen/ahrs/pkg/can"

// Producer fills the payload bytes of an outgoing message.
type Producer func(payload []byte)

// MessageTemplate describes a normal operation data message.
type MessageTemplate struct {
	ID       uint32
	Name     string
	Type     DataType
	Producer Producer
}

// Message builds a message with the producer output as payload.
func (t *MessageTemplate) Message() Message {
	msg := Message{ID: t.ID, Type: t.Type}
	if t.Producer != nil {
		t.Producer(msg.Data[:])
	}
	return msg
}

// ServiceTemplate describes a service reply.
type ServiceTemplate struct {
	Type     DataType
	Service  ServiceCode
	Code     uint8
	Producer Producer
}

// Request is a received node service request.
type Request struct {
	Message
	Raw         can.Frame
	Channel     uint8
	LowPriority bool
}

// ServiceCode returns the requested service.
func (r *Request) ServiceCode() ServiceCode {
	return ServiceCode(r.Service)
}

// Param returns payload byte i, i.e. frame byte 4+i.
func (r *Request) Param(i int) byte {
	return r.Data[i]
}

// ResponseID is the identifier the reply is sent on.
func (r *Request) ResponseID() uint32 {
	return ResponseID(r.ID)
}

// Handler answers a service request. The returned error is the transmit status.
type Handler interface {
	HandleRequest(*Request) error
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(*Request) error

// HandleRequest implements Handler.
func (f HandlerFunc) HandleRequest(req *Request) error {
	return f(req)
}

// DispatchTable maps service codes to handlers. nil entries are not answered.
type DispatchTable [NumServices]Handler

// Lookup returns the handler for code, nil when unsupported.
func (t *DispatchTable) Lookup(code ServiceCode) Handler {
	if code >= NumServices {
		return nil
	}
	return t[code]
}

// Services lists the populated service codes.
func (t *DispatchTable) Services() []ServiceCode {
	var codes []ServiceCode
	for n, h := range t {
		if h != nil {
			codes = append(codes, ServiceCode(n))
		}
	}
	return codes
}
