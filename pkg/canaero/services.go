package canaero

import "github.com/golang/glog"

// BSS bit rate codes.
var bitRateCodes = map[uint8]uint32{
	0: 1000000,
	1: 500000,
	2: 250000,
	3: 125000,
}

// StandardServices returns a table holding the identification, baudrate
// setting and node-ID setting services of the stack.
func (s *Stack) StandardServices() DispatchTable {
	var t DispatchTable
	t[IDS] = HandlerFunc(s.replyIDS)
	t[BSS] = HandlerFunc(s.replyBSS)
	t[NIS] = HandlerFunc(s.replyNIS)
	return t
}

// ReplyInvalid rejects a request with the invalid message code.
func (s *Stack) ReplyInvalid(req *Request) error {
	return s.SendServiceReply(req, &ServiceTemplate{Type: NODATA, Service: req.ServiceCode(), Code: InvalidCode})
}

func (s *Stack) replyIDS(req *Request) error {
	if req.Type != NODATA {
		return s.ReplyInvalid(req)
	}
	cfg := s.Config()
	return s.SendServiceReply(req, &ServiceTemplate{
		Type:    UCHAR4,
		Service: IDS,
		Code:    0,
		Producer: func(b []byte) {
			b[0], b[1] = cfg.HardwareRevision, cfg.SoftwareRevision
			b[2], b[3] = 0, 0 // standard identifier distribution, standard header
		},
	})
}

func (s *Stack) replyBSS(req *Request) error {
	if req.Type != UCHAR {
		return s.ReplyInvalid(req)
	}
	code := req.Param(0)
	rate, ok := bitRateCodes[code]
	if !ok {
		return s.ReplyInvalid(req)
	}
	s.lock.Lock()
	s.bitRate = rate
	s.lock.Unlock()
	glog.Infof("canaero: bit rate %d stored for next init", rate)
	return s.SendServiceReply(req, &ServiceTemplate{
		Type:     UCHAR,
		Service:  BSS,
		Code:     0,
		Producer: func(b []byte) { b[0] = code },
	})
}

func (s *Stack) replyNIS(req *Request) error {
	id := req.Param(0)
	if req.Type != UCHAR || id == 0 {
		return s.ReplyInvalid(req)
	}
	s.lock.Lock()
	s.cfg.NodeID = id
	s.lock.Unlock()
	glog.Infof("canaero: node id set to %d", id)
	return s.SendServiceReply(req, &ServiceTemplate{
		Type:     UCHAR,
		Service:  NIS,
		Code:     0,
		Producer: func(b []byte) { b[0] = id },
	})
}
