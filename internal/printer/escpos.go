package printer

import "bytes"

var (
	cmdInit     = []byte{0x1B, 0x40}
	cmdCodepage = []byte{0x1B, 0x74, 0x00}
	cmdFeed     = []byte{0x1B, 0x64, 0x04}
	cmdCut      = []byte{0x1D, 0x56, 0x01}
	// ESC p 0 25 250 pulses drawer pin 2
	cmdDrawer = []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}
)

// ESCPOS frames rendered text for a thermal printer: init, codepage, body,
// feed and partial cut, then the optional drawer kick.
func ESCPOS(text string, drawer bool) []byte {
	var b bytes.Buffer
	b.Write(cmdInit)
	b.Write(cmdCodepage)
	b.WriteString(text)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.Write(cmdFeed)
	b.Write(cmdCut)
	if drawer {
		b.Write(cmdDrawer)
	}
	return b.Bytes()
}

// DrawerKick opens the cash drawer without printing.
func DrawerKick() []byte {
	return append(append([]byte(nil), cmdInit...), cmdDrawer...)
}
