// Package sh is the interactive shell of the bus monitor.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/canaero"
	"github.com/gpgreen/ahrs/pkg/env"
	fx "github.com/gpgreen/ahrs/pkg/framework"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell   *ishell.Shell
	BusURL  string
	Node    uint8
	Channel uint8
	Conn    *Conn
}

// Conn is an open bus with a running frame mux.
type Conn struct {
	URL       string
	Transport *env.Transport
	Mux       *can.Mux
	Client    *canaero.Client

	runner *fx.Runner
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly    bool
	outputJSON  bool
	busURL      = env.Default().BusURL
	targetNode  = uint(env.Default().NodeID)
	channel     uint
	linkTimeout = 5 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&NodeCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&busURL, "bus", busURL, "CAN bus URL.")
	flag.UintVar(&targetNode, "node", targetNode, "Node to query.")
	flag.UintVar(&channel, "channel", channel, "Service channel.")
	flag.DurationVar(&linkTimeout, "link-timeout", linkTimeout, "Byte link sync timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:   ishell.New(),
		BusURL:  busURL,
		Node:    uint8(targetNode),
		Channel: uint8(channel),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Output prints v as JSON in JSON mode, otherwise text.
func Output(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the bus at url, replacing the current connection.
func (s *Shell) Connect(url string) error {
	t, err := env.OpenBus(url, env.ClientID(0)+"-mon", linkTimeout)
	if err != nil {
		return err
	}
	conn := &Conn{URL: url, Transport: t, Mux: can.NewMux(t.Bus), runner: fx.NewRunner()}
	conn.Client = canaero.NewClient(conn.Mux, s.Channel)
	conn.runner.Go(t.Tasks...).Go(fx.NamedRun("mux", conn.Mux))
	if t.BringUp != nil {
		if err := t.BringUp(); err != nil {
			conn.close()
			return err
		}
	}
	s.Disconnect()
	s.Conn = conn
	s.updatePrompt()
	return nil
}

func (c *Conn) close() {
	c.runner.Stop()
	if err := c.Transport.Bus.Close(); err != nil {
		glog.Warningf("close %s: %v", c.URL, err)
	}
	c.runner.Wait()
}

// Disconnect closes current connection.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.close()
		s.Conn = nil
	}
	s.updatePrompt()
}

func (s *Shell) updatePrompt() {
	if s.Conn == nil {
		s.Shell.SetPrompt(unconnectedPrompt)
		return
	}
	s.Shell.SetPrompt(fmt.Sprintf("[%s node %d] > ", s.Conn.URL, s.Node))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.BusURL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.BusURL)
		}
		if err := s.Connect(s.BusURL); err != nil {
			glog.Exitf("connect %q failed: %v", s.BusURL, err)
		}
		defer s.Disconnect()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// ConnectCmd opens a bus.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[BUS-URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url := s.BusURL
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if err := s.Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the bus.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// NodeCmd shows or selects the node queried by requests.
	NodeCmd = ishell.Cmd{
		Name:    "node",
		Aliases: []string{"n"},
		Help:    "[ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				var id uint8
				if _, err := fmt.Sscan(c.Args[0], &id); err != nil || id == 0 {
					c.Err(fmt.Errorf("invalid node id %q", c.Args[0]))
					return
				}
				s.Node = id
				s.updatePrompt()
			}
			Output(c, s.Node, fmt.Sprintf("node %d", s.Node))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	defer glog.Flush()
	New().WithAutoConnect(true).Run(flag.Args()...)
}
