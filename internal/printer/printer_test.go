package printer

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riwa-pos/internal/common/config"
	"riwa-pos/internal/common/logger"
)

func TestESCPOS(t *testing.T) {
	doc := ESCPOS("hello", false)
	assert.True(t, bytes.HasPrefix(doc, []byte{0x1B, 0x40}))
	assert.Contains(t, string(doc), "hello\n")
	assert.True(t, bytes.HasSuffix(doc, []byte{0x1D, 0x56, 0x01}))

	withDrawer := ESCPOS("hello\n", true)
	assert.True(t, bytes.HasSuffix(withDrawer, []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}))
	assert.Equal(t, []byte{0x1B, 0x40, 0x1B, 0x70, 0x00, 0x19, 0xFA}, DrawerKick())
}

func TestDefault(t *testing.T) {
	d := NewDispatcher([]config.Printer{
		{ID: "off", IP: "10.0.0.1", Channel: "pos", Enabled: false},
		{ID: "kitchen", IP: "10.0.0.2", Channel: "kds", Enabled: true},
		{ID: "front", IP: "10.0.0.3", Channel: "both", Enabled: true},
	}, logger.NewWithWriter("terminal", io.Discard))

	p, err := d.Default(ChannelPOS)
	require.NoError(t, err)
	assert.Equal(t, "front", p.ID)
	assert.Equal(t, "10.0.0.3:9100", p.Addr())

	p, err = d.Default(ChannelKDS)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", p.ID)

	_, err = NewDispatcher(nil, logger.NewWithWriter("t", io.Discard)).Default(ChannelPOS)
	assert.ErrorIs(t, err, ErrNoPrinter)
}

func TestPrintText_OverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	got := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		b, _ := io.ReadAll(c)
		got <- b
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	d := NewDispatcher([]config.Printer{{ID: "p1", IP: "127.0.0.1", Port: port, Channel: "pos", Enabled: true, Drawer: true}},
		logger.NewWithWriter("terminal", io.Discard))

	p, err := d.PrintText(context.Background(), ChannelPOS, "RECEIPT", true)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	select {
	case b := <-got:
		assert.Contains(t, string(b), "RECEIPT")
		assert.True(t, bytes.HasSuffix(b, cmdDrawer))
	case <-time.After(2 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestPrint_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	d := NewDispatcher(nil, logger.NewWithWriter("terminal", io.Discard))
	err = d.Print(context.Background(), Printer{ID: "gone", IP: "127.0.0.1", Port: addr.Port}, []byte("x"))
	assert.Error(t, err)
}
