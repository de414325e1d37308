package aero

import (
	"fmt"

	"github.com/gpgreen/ahrs/pkg/ahrs"
	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/canaero"
)

// Describe renders a frame as CANaerospace traffic: error frames, emergency
// events, service requests and replies, telemetry, anything else raw.
func Describe(f can.Frame) string {
	if f.Err {
		return fmt.Sprintf("bus %s", f.BusState())
	}
	if f.RTR || f.Extended {
		return f.String()
	}
	if canaero.IsEmergency(f.ID) {
		ev, err := canaero.DecodeEmergencyEvent(f)
		if err != nil {
			return fmt.Sprintf("%s (%v)", f, err)
		}
		return ev.String()
	}
	msg, err := canaero.DecodeMessage(f)
	if err != nil {
		return f.String()
	}
	if ch, low, ok := canaero.ServiceChannel(f.ID); ok {
		return fmt.Sprintf("REQ ch%d%s node=%d %s code=%d %s %s",
			ch, priority(low), msg.Node, canaero.ServiceCode(msg.Service), msg.Code, msg.Type, msg.Value())
	}
	if ch, low, ok := canaero.ServiceChannel(f.ID - 1); ok && f.ID > 0 {
		return fmt.Sprintf("RSP ch%d%s node=%d %s code=%d %s %s",
			ch, priority(low), msg.Node, canaero.ServiceCode(msg.Service), msg.Code, msg.Type, msg.Value())
	}
	if ahrs.TelemetryName(f.ID) != "" {
		return DecodeSample(msg).String()
	}
	return msg.String()
}

func priority(low bool) string {
	if low {
		return " low"
	}
	return ""
}
