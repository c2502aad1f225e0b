// Package printer sends ESC/POS documents to network thermal printers.
package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"riwa-pos/internal/common/config"
	"riwa-pos/internal/common/logger"
)

const DefaultPort = 9100

type Channel string

const (
	ChannelPOS  Channel = "pos"
	ChannelKDS  Channel = "kds"
	ChannelBoth Channel = "both"
)

var ErrNoPrinter = errors.New("no printer configured")

type Printer struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	IP         string  `json:"ip_address"`
	Port       int     `json:"port"`
	Channel    Channel `json:"default_for_channel"`
	Enabled    bool    `json:"enabled"`
	OpenDrawer bool    `json:"open_drawer_after"`
}

func (p Printer) Addr() string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(p.IP, strconv.Itoa(port))
}

func (p Printer) serves(ch Channel) bool {
	return p.Channel == ch || p.Channel == ChannelBoth
}

type Dispatcher struct {
	printers    []Printer
	log         *logger.Logger
	dialTimeout time.Duration
	dialer      net.Dialer
}

func NewDispatcher(cfg []config.Printer, log *logger.Logger) *Dispatcher {
	ps := make([]Printer, 0, len(cfg))
	for _, c := range cfg {
		ch := Channel(c.Channel)
		if ch == "" {
			ch = ChannelPOS
		}
		ps = append(ps, Printer{ID: c.ID, Name: c.Name, IP: c.IP, Port: c.Port, Channel: ch, Enabled: c.Enabled, OpenDrawer: c.Drawer})
	}
	return &Dispatcher{printers: ps, log: log, dialTimeout: 3 * time.Second}
}

func (d *Dispatcher) Printers() []Printer { return append([]Printer(nil), d.printers...) }

// Default picks the first enabled printer for ch.
func (d *Dispatcher) Default(ch Channel) (Printer, error) {
	for _, p := range d.printers {
		if p.Enabled && p.serves(ch) {
			return p, nil
		}
	}
	return Printer{}, fmt.Errorf("%w for channel %s", ErrNoPrinter, ch)
}

// Print writes doc to the printer over raw TCP.
func (d *Dispatcher) Print(ctx context.Context, p Printer, doc []byte) error {
	dctx, cancel := context.WithTimeout(ctx, d.dialTimeout)
	defer cancel()
	conn, err := d.dialer.DialContext(dctx, "tcp", p.Addr())
	if err != nil {
		d.log.Warn("printer_unreachable", map[string]any{"printer": p.ID, "addr": p.Addr(), "error": err.Error()})
		return fmt.Errorf("dial printer %s: %w", p.ID, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(d.dialTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetWriteDeadline(deadline)
	if _, err := conn.Write(doc); err != nil {
		return fmt.Errorf("write printer %s: %w", p.ID, err)
	}
	d.log.Info("printed", map[string]any{"printer": p.ID, "bytes": len(doc)})
	return nil
}

// PrintText frames text and prints it on the channel's default printer. The
// drawer opens only when asked and the printer is set to open it.
func (d *Dispatcher) PrintText(ctx context.Context, ch Channel, text string, drawer bool) (Printer, error) {
	p, err := d.Default(ch)
	if err != nil {
		return Printer{}, err
	}
	return p, d.Print(ctx, p, ESCPOS(text, drawer && p.OpenDrawer))
}
