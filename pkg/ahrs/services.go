package ahrs

import (
	"errors"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/canaero"
)

// Module information subcodes.
const (
	MISState     = 0
	MISName      = 1
	MISResets1   = 2
	MISResets2   = 3
	MISEquipment = 10
)

// Module configuration subcodes.
const (
	MCSState     = 0
	MCSBuffers   = 1
	MCSEquipment = 10
)

// ModuleName is returned by the module information service.
const ModuleName = "AHRS"

var errReinit = errors.New("reinit failed")

// Services implements the module information and module configuration services.
type Services struct {
	Context   *Context
	Transport Transport
}

// Table overlays MIS and MCS on the standard services.
func (s *Services) Table(standard canaero.DispatchTable) canaero.DispatchTable {
	t := standard
	t[canaero.MIS] = canaero.HandlerFunc(s.HandleMIS)
	t[canaero.MCS] = canaero.HandlerFunc(s.HandleMCS)
	return t
}

func (s *Services) invalid(req *canaero.Request) error {
	return s.Transport.SendServiceReply(req, &canaero.ServiceTemplate{
		Type:    canaero.NODATA,
		Service: req.ServiceCode(),
		Code:    canaero.InvalidCode,
	})
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (s *Services) stateProducer(b []byte) {
	b[0] = boolByte(s.Context.State() == StateListen)
	b[1] = boolByte(s.Context.Filter.HighPriorityOnly())
}

// HandleMIS answers a module information request.
func (s *Services) HandleMIS(req *canaero.Request) error {
	if req.Type != canaero.NODATA {
		return s.invalid(req)
	}
	tmpl := &canaero.ServiceTemplate{Service: canaero.MIS, Code: req.Code}
	switch req.Code {
	case MISState:
		tmpl.Type, tmpl.Producer = canaero.UCHAR2, s.stateProducer
	case MISName:
		tmpl.Type = canaero.UCHAR4
		tmpl.Producer = func(b []byte) { copy(b, ModuleName) }
	case MISResets1:
		tmpl.Type = canaero.USHORT2
		tmpl.Producer = func(b []byte) {
			pwr, ext := s.Context.Resets.PowerOnExternal()
			canaero.PutUShort2(b, pwr, ext)
		}
	case MISResets2:
		tmpl.Type = canaero.USHORT2
		tmpl.Producer = func(b []byte) {
			bo, wd := s.Context.Resets.BrownOutWatchdog()
			canaero.PutUShort2(b, bo, wd)
		}
	case MISEquipment:
		tmpl.Type = canaero.UCHAR4
		tmpl.Producer = func(b []byte) { copy(b, s.Context.Equipment[:]) }
	default:
		return s.invalid(req)
	}
	return s.Transport.SendServiceReply(req, tmpl)
}

// HandleMCS applies a module configuration request.
func (s *Services) HandleMCS(req *canaero.Request) error {
	switch {
	case req.Code == MCSState && req.Type == canaero.UCHAR2:
		return s.configureState(req)
	case req.Code == MCSBuffers && req.Type == canaero.UCHAR2:
		if req.Param(1) != 0 {
			s.Transport.ClearTxBuffers()
		}
		if req.Param(0) != 0 {
			s.Transport.ResetSequenceCounters()
		}
		return s.Transport.SendServiceReply(req, &canaero.ServiceTemplate{
			Type: canaero.NODATA, Service: canaero.MCS, Code: MCSBuffers,
		})
	case req.Code == MCSEquipment && req.Type == canaero.UCHAR4:
		for i := range s.Context.Equipment {
			s.Context.Equipment[i] = req.Param(i)
		}
		glog.Infof("equipment set to %v", s.Context.Equipment)
		return s.Transport.SendServiceReply(req, &canaero.ServiceTemplate{
			Type: canaero.UCHAR4, Service: canaero.MCS, Code: MCSEquipment,
			Producer: func(b []byte) { copy(b, s.Context.Equipment[:]) },
		})
	}
	return s.invalid(req)
}

// configureState switches the node state and the filter mode. A nonzero
// first parameter selects listen mode, zero selects active mode.
func (s *Services) configureState(req *canaero.Request) error {
	state := StateActive
	if req.Param(0) != 0 {
		state = StateListen
	}
	filter := FilterNone
	if req.Param(1) != 0 {
		filter = FilterHighPriorityOnly
	}
	if filter != s.Context.Filter {
		if err := s.Transport.Reinit(filter.HighPriorityOnly()); err != nil {
			s.Context.Fail(&PreCommsFault{Err: err})
			return errReinit
		}
		s.Context.Filter = filter
	}
	if state != s.Context.State() {
		glog.Infof("state %s -> %s", s.Context.State(), state)
	}
	s.Context.SetState(state)
	return s.Transport.SendServiceReply(req, &canaero.ServiceTemplate{
		Type: canaero.UCHAR2, Service: canaero.MCS, Code: MCSState,
		Producer: s.stateProducer,
	})
}
