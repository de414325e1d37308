package ahrs

import "fmt"

// FaultCode identifies the failed device in a post-communications halt.
type FaultCode uint8

// Fault codes, blinked by the fault indicator.
const (
	FaultPressure      FaultCode = 1
	FaultAccelerometer FaultCode = 2
	FaultGyroscope     FaultCode = 3
)

func (c FaultCode) String() string {
	switch c {
	case FaultPressure:
		return "pressure"
	case FaultAccelerometer:
		return "accelerometer"
	case FaultGyroscope:
		return "gyroscope"
	}
	return fmt.Sprintf("FaultCode(%d)", uint8(c))
}

// Fault is the outcome of an operation that went wrong.
// Only PreCommsFault and PostCommsFault are fatal.
type Fault interface {
	error
	Fatal() bool
}

// RecoverableFault is logged and execution continues.
type RecoverableFault struct {
	Err error
}

func (f *RecoverableFault) Error() string { return f.Err.Error() }

// Fatal implements Fault.
func (f *RecoverableFault) Fatal() bool { return false }

// PreCommsFault means the bus can not be used.
type PreCommsFault struct {
	Err error
}

func (f *PreCommsFault) Error() string {
	return fmt.Sprintf("communications failure: %v", f.Err)
}

// Fatal implements Fault.
func (f *PreCommsFault) Fatal() bool { return true }

// Unwrap returns the cause.
func (f *PreCommsFault) Unwrap() error { return f.Err }

// PostCommsFault means a device failed after the bus came up.
type PostCommsFault struct {
	Code FaultCode
	Err  error
}

func (f *PostCommsFault) Error() string {
	return fmt.Sprintf("%s failure (code %d): %v", f.Code, uint8(f.Code), f.Err)
}

// Fatal implements Fault.
func (f *PostCommsFault) Fatal() bool { return true }

// Unwrap returns the cause.
func (f *PostCommsFault) Unwrap() error { return f.Err }
