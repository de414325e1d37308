package env

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/gpgreen/ahrs/pkg/can"
	"github.com/gpgreen/ahrs/pkg/can/link"
	"github.com/gpgreen/ahrs/pkg/can/mqtt"
	"github.com/gpgreen/ahrs/pkg/framework"
)

// Transport is an opened CAN bus with the tasks that drive it.
type Transport struct {
	Bus   can.Bus
	Tasks []framework.Runnable
	// BringUp waits for the transport to be usable, nil when always ready.
	BringUp func() error
}

// OpenBus opens the bus selected by busURL:
//
//	loopback:                        in-process bus, nothing else attached
//	mqtt://host:1883/prefix/         MQTT bridge (also tcp, ssl)
//	serial:///dev/ttyUSB0?baud=N     byte link over a serial port
//	ws://host:port/path              byte link dialled over a websocket
//	ws-listen://:8080/path           websocket hub accepting byte link peers
func OpenBus(busURL string, clientID string, linkTimeout time.Duration) (*Transport, error) {
	u, err := url.Parse(busURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bus URL: %v", err)
	}
	switch u.Scheme {
	case "loopback", "":
		return &Transport{Bus: can.NewLoopbackBus().Open()}, nil
	case "mqtt", "tcp", "ssl":
		bus, err := mqtt.Dial(busURL, clientID)
		if err != nil {
			return nil, fmt.Errorf("mqtt %s: %v", u.Host, err)
		}
		return &Transport{Bus: bus}, nil
	case "serial":
		baud := link.DefaultBaudRate
		if val := u.Query().Get("baud"); val != "" {
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud rate %q", val)
			}
		}
		l, err := link.OpenSerial(u.Path, baud)
		if err != nil {
			return nil, err
		}
		return linkTransport(l, linkTimeout), nil
	case "ws", "wss":
		origin := "http://" + u.Host
		if u.Scheme == "wss" {
			origin = "https://" + u.Host
		}
		l, err := link.DialWebsocket(busURL, origin)
		if err != nil {
			return nil, err
		}
		return linkTransport(l, linkTimeout), nil
	case "ws-listen":
		return hubTransport(u), nil
	default:
		return nil, fmt.Errorf("unknown bus URL scheme: %q", u.Scheme)
	}
}

func linkTransport(l *link.Link, timeout time.Duration) *Transport {
	return &Transport{
		Bus:   l,
		Tasks: []framework.Runnable{framework.NamedRun("link", l)},
		BringUp: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := l.WaitReady(ctx); err != nil {
				return fmt.Errorf("link %s not synchronised: %v", l.Name, err)
			}
			return nil
		},
	}
}

func hubTransport(u *url.URL) *Transport {
	hub := link.NewHub()
	path := u.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, hub.Handler())
	srv := &http.Server{Addr: u.Host, Handler: mux}
	serve := framework.RunFunc(func(ctx context.Context) error {
		glog.Infof("websocket hub listening on %s%s", u.Host, path)
		return framework.RunWithContextCancel(ctx, func() {
			srv.Close()
		}, func() error {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	})
	return &Transport{
		Bus:   hub,
		Tasks: []framework.Runnable{framework.NamedRun("hub", serve)},
	}
}
