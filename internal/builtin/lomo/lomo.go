// Package lomo is the builtin playback plugin. It drives an MPD server.
package lomo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/soyeahso/eina/internal/builtin/settings"
	"github.com/soyeahso/eina/internal/config"
	"github.com/soyeahso/eina/internal/logging"
	"github.com/soyeahso/eina/internal/plugin"
)

const Name = "lomo"

// Settings keys consulted before the config file.
const (
	AddressKey  = "/lomo/address"
	PasswordKey = "/lomo/password"
)

// Conn is the subset of *mpd.Client the plugin uses.
type Conn interface {
	Play(pos int) error
	Pause(pause bool) error
	Stop() error
	Next() error
	Previous() error
	Status() (mpd.Attrs, error)
	CurrentSong() (mpd.Attrs, error)
	Ping() error
	Close() error
}

// Dialer opens a connection to MPD.
type Dialer func(network, addr, password string) (Conn, error)

// DialTimeout bounds how long DialMPD waits for the server to answer.
const DialTimeout = 2 * time.Second

// dialNet is swapped in tests.
var dialNet = net.DialTimeout

// DialMPD connects with gompd. A password is sent when set. gompd dials
// without a timeout, so reachability is checked first with DialTimeout.
func DialMPD(network, addr, password string) (Conn, error) {
	nc, err := dialNet(network, addr, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing MPD at %s: %w", addr, err)
	}
	nc.Close()

	if password != "" {
		return mpd.DialAuthenticated(network, addr, password)
	}
	return mpd.Dial(network, addr)
}

// Plugin keeps a lazily dialled MPD connection.
type Plugin struct {
	cfg  config.LomoConfig
	dial Dialer

	mu       sync.Mutex
	conn     Conn
	network  string
	addr     string
	password string
	log      *logging.Logger
}

// New returns a plugin using cfg for defaults. A nil dial uses DialMPD.
func New(cfg config.LomoConfig, dial Dialer) *Plugin {
	if dial == nil {
		dial = DialMPD
	}
	return &Plugin{cfg: cfg, dial: dial}
}

// Info describes the builtin.
func Info() plugin.Info {
	return plugin.Info{
		Name:      Name,
		Depends:   []string{settings.Name},
		Author:    "Eina",
		ShortDesc: "MPD playback",
		LongDesc:  "Controls playback on a Music Player Daemon server.",
	}
}

// Init resolves the server address and checks it is reachable. An
// unreachable server is not an error; the connection is retried on use.
func (p *Plugin) Init(_ context.Context, api plugin.API) error {
	s, ok := settings.From(api.Engine)
	if !ok {
		return errors.New("settings plugin not loaded")
	}

	addr := s.Settings.GetDefault(AddressKey, p.cfg.Address)
	if addr == "" {
		return errors.New("no MPD address configured")
	}
	p.network, p.addr = splitAddress(addr)
	p.password = s.Settings.GetDefault(PasswordKey, p.cfg.Password)
	p.log = api.Log
	api.Handle.Data = p

	if err := p.do(func(c Conn) error { return c.Ping() }); err != nil {
		p.log.Warn().Err(err).Str("addr", addr).Msg("MPD not reachable yet")
	} else {
		p.log.Info().Str("addr", addr).Msg("connected to MPD")
	}
	return nil
}

func (p *Plugin) Fini(_ context.Context, _ plugin.API) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// splitAddress treats absolute paths as unix sockets.
func splitAddress(addr string) (network, address string) {
	if strings.HasPrefix(addr, "/") {
		return "unix", addr
	}
	return "tcp", addr
}

// Address returns the network and address in use.
func (p *Plugin) Address() (string, string) {
	return p.network, p.addr
}

// do runs fn on the connection, dialling first if needed. A failed call
// drops the connection and is retried once on a fresh one.
func (p *Plugin) do(fn func(Conn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if p.conn == nil {
			p.conn, err = p.dial(p.network, p.addr, p.password)
			if err != nil {
				p.conn = nil
				return fmt.Errorf("dialing MPD at %s: %w", p.addr, err)
			}
		}
		if err = fn(p.conn); err == nil {
			return nil
		}
		p.conn.Close()
		p.conn = nil
	}
	return err
}

func (p *Plugin) Play() error     { return p.do(func(c Conn) error { return c.Play(-1) }) }
func (p *Plugin) Pause() error    { return p.do(func(c Conn) error { return c.Pause(true) }) }
func (p *Plugin) Resume() error   { return p.do(func(c Conn) error { return c.Pause(false) }) }
func (p *Plugin) Stop() error     { return p.do(func(c Conn) error { return c.Stop() }) }
func (p *Plugin) Next() error     { return p.do(func(c Conn) error { return c.Next() }) }
func (p *Plugin) Previous() error { return p.do(func(c Conn) error { return c.Previous() }) }

// Status is a snapshot of the player.
type Status struct {
	State   string  `json:"state"`
	Volume  int     `json:"volume"`
	Elapsed float64 `json:"elapsed"`
	Artist  string  `json:"artist,omitempty"`
	Title   string  `json:"title,omitempty"`
	File    string  `json:"file,omitempty"`
}

// Status reads the player state and current song.
func (p *Plugin) Status() (Status, error) {
	var st Status
	err := p.do(func(c Conn) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		song, err := c.CurrentSong()
		if err != nil {
			return err
		}
		st = Status{
			State:  attrs["state"],
			Artist: song["Artist"],
			Title:  song["Title"],
			File:   song["file"],
		}
		st.Volume, _ = strconv.Atoi(attrs["volume"])
		st.Elapsed, _ = strconv.ParseFloat(attrs["elapsed"], 64)
		return nil
	})
	return st, err
}

// From returns the loaded lomo plugin, if any.
func From(e *plugin.Engine) (*Plugin, bool) {
	h := e.Get(Name)
	if h == nil {
		return nil, false
	}
	p, ok := h.Data.(*Plugin)
	return p, ok
}
