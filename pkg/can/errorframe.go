package can

// Error classes reported in the identifier of an error frame (linux/can/error.h).
const (
	ErrClassTxTimeout  uint32 = 0x001
	ErrClassLostArb    uint32 = 0x002
	ErrClassController uint32 = 0x004
	ErrClassProtocol   uint32 = 0x008
	ErrClassBusOff     uint32 = 0x040
	ErrClassBusError   uint32 = 0x080
	ErrClassRestarted  uint32 = 0x100
)

// Controller status bits in Data[1] of an ErrClassController frame.
const (
	CtrlRxWarning byte = 0x04
	CtrlTxWarning byte = 0x08
	CtrlRxPassive byte = 0x10
	CtrlTxPassive byte = 0x20
)

// BusState summarises what an error frame says about the controller.
type BusState int

const (
	// BusStateOther is any error not changing the bus state.
	BusStateOther BusState = iota
	// BusStateWarning is the error-warning level.
	BusStateWarning
	// BusStatePassive is error-passive.
	BusStatePassive
	// BusStateOff is bus-off.
	BusStateOff
)

func (s BusState) String() string {
	switch s {
	case BusStateWarning:
		return "warning"
	case BusStatePassive:
		return "passive"
	case BusStateOff:
		return "bus-off"
	default:
		return "error"
	}
}

// ErrorFrame builds an error frame describing the state.
func ErrorFrame(state BusState) Frame {
	f := Frame{Err: true, Len: 8}
	switch state {
	case BusStateOff:
		f.ID = ErrClassBusOff
	case BusStatePassive:
		f.ID = ErrClassController
		f.Data[1] = CtrlRxPassive | CtrlTxPassive
	case BusStateWarning:
		f.ID = ErrClassController
		f.Data[1] = CtrlRxWarning | CtrlTxWarning
	default:
		f.ID = ErrClassProtocol
	}
	return f
}

// BusState classifies an error frame. Data frames return BusStateOther.
func (f Frame) BusState() BusState {
	if !f.Err {
		return BusStateOther
	}
	if f.ID&ErrClassBusOff != 0 {
		return BusStateOff
	}
	if f.ID&ErrClassController != 0 {
		switch ctrl := f.Data[1]; {
		case ctrl&(CtrlRxPassive|CtrlTxPassive) != 0:
			return BusStatePassive
		case ctrl&(CtrlRxWarning|CtrlTxWarning) != 0:
			return BusStateWarning
		}
	}
	return BusStateOther
}
