// Package aero provides the read-only CANaerospace commands of the monitor.
package aero

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/gpgreen/ahrs/pkg/ahrs"
	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/can/link"
	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/cli/sh"
)

// Info is a decoded module information reply.
type Info struct {
	Code  uint8  `json:"code"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

var misNames = map[uint8]string{
	ahrs.MISState:     "state",
	ahrs.MISName:      "name",
	ahrs.MISResets1:   "resets (power-on, external)",
	ahrs.MISResets2:   "resets (brown-out, watchdog)",
	ahrs.MISEquipment: "equipment",
}

// DecodeInfo renders a module information reply.
func DecodeInfo(msg canaero.Message) Info {
	info := Info{Code: msg.Code, Name: misNames[msg.Code], Value: msg.Value()}
	d := msg.Data[:]
	switch msg.Code {
	case ahrs.MISState:
		mode := "active"
		if d[0] != 0 {
			mode = "listen"
		}
		filter := "all services"
		if d[1] != 0 {
			filter = "high priority only"
		}
		info.Value = mode + ", " + filter
	case ahrs.MISName:
		info.Value = strings.TrimRight(string(msg.Payload()), "\x00")
	case ahrs.MISEquipment:
		names := []string{"accelerometer", "gyroscope", "static air", "dynamic air"}
		var on []string
		for i, name := range names {
			if d[i] != 0 {
				on = append(on, name)
			}
		}
		info.Value = "[" + strings.Join(on, " ") + "]"
	}
	return info
}

// Sample is a decoded telemetry message.
type Sample struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Node  uint8  `json:"node"`
	Seq   uint8  `json:"seq"`
	Value string `json:"value"`
}

// DecodeSample renders a normal operation data message.
func DecodeSample(msg canaero.Message) Sample {
	name := ahrs.TelemetryName(msg.ID)
	if name == "" {
		name = fmt.Sprintf("0x%03x", msg.ID)
	}
	return Sample{ID: msg.ID, Name: name, Node: msg.Node, Seq: msg.Code, Value: msg.Value()}
}

func (s Sample) String() string {
	return fmt.Sprintf("%-30s node=%d seq=%3d %s", s.Name, s.Node, s.Seq, s.Value)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

var (
	// IdentifyCmd queries IDS of the node.
	IdentifyCmd = ishell.Cmd{
		Name:    "ids",
		Aliases: []string{"id"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			ctx, cancel := requestContext()
			defer cancel()
			hw, sw, err := s.Conn.Client.Identify(ctx, s.Node)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, map[string]uint8{"hardware": hw, "software": sw},
				fmt.Sprintf("Hardware: %d Software: %d", hw, sw))
		}),
	}

	// InfoCmd queries MIS of the node.
	InfoCmd = ishell.Cmd{
		Name:    "mis",
		Aliases: []string{"info"},
		Help:    "[CODE...] (default: all)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			codes := []uint8{ahrs.MISState, ahrs.MISName, ahrs.MISResets1, ahrs.MISResets2, ahrs.MISEquipment}
			if len(c.Args) > 0 {
				codes = codes[:0]
				for _, arg := range c.Args {
					n, err := strconv.ParseUint(arg, 0, 8)
					if err != nil {
						c.Err(fmt.Errorf("invalid CODE %q", arg))
						return
					}
					codes = append(codes, uint8(n))
				}
			}
			for _, code := range codes {
				ctx, cancel := requestContext()
				msg, err := s.Conn.Client.Query(ctx, s.Node, canaero.MIS, code)
				cancel()
				if err != nil {
					c.Err(err)
					continue
				}
				info := DecodeInfo(msg)
				sh.Output(c, info, fmt.Sprintf("%2d %-30s %s", info.Code, info.Name, info.Value))
			}
		}),
	}

	// CaptureCmd prints telemetry.
	CaptureCmd = ishell.Cmd{
		Name:    "capture",
		Aliases: []string{"cap"},
		Help:    "[COUNT] [SECONDS]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			count, secs := 20, 5.0
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[0]))
					return
				}
				count = n
			}
			if len(c.Args) > 1 {
				v, err := strconv.ParseFloat(c.Args[1], 64)
				if err != nil || v <= 0 {
					c.Err(fmt.Errorf("invalid SECONDS %q", c.Args[1]))
					return
				}
				secs = v
			}
			s := sh.ShellFrom(c)
			sub := s.Conn.Mux.Subscribe(can.And(can.ByRange(ahrs.IDCycleTime, ahrs.IDTotalPressure), can.DataOnly()), count)
			defer sub.Close()
			timeout := time.After(time.Duration(secs * float64(time.Second)))
			for n := 0; n < count; {
				select {
				case f, ok := <-sub.C:
					if !ok {
						return
					}
					msg, err := canaero.DecodeMessage(f)
					if err != nil {
						continue
					}
					sample := DecodeSample(msg)
					sh.Output(c, sample, sample.String())
					n++
				case <-timeout:
					return
				}
			}
		}),
	}

	// PortsCmd lists serial ports usable in serial:// bus URLs.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := link.SerialPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if ports == nil {
				ports = []string{}
			}
			sh.Output(c, ports, strings.Join(ports, "\n"))
		},
	}
)

func init() {
	sh.AddCmds(&IdentifyCmd, &InfoCmd, &CaptureCmd, &PortsCmd)
}
