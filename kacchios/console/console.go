// Package console is the engine's byte sink: every diagnostic line the
// core emits flows through it, one byte at a time, onto a serial device.
package console

import "kacchi/hal"

const hexDigits = "0123456789ABCDEF"

// Console adapts a hal.Serial to the byte-oriented output the engine
// components use.
type Console struct {
	s hal.Serial

	rbuf [64]byte
	rlen int
	rpos int
}

func New(s hal.Serial) *Console {
	return &Console{s: s}
}

// PutByte writes a single byte, expanding '\n' to "\r\n".
func (c *Console) PutByte(b byte) {
	if b == '\n' {
		c.put('\r')
	}
	c.put(b)
}

func (c *Console) put(b byte) {
	if c.s == nil {
		return
	}
	buf := [1]byte{b}
	_, _ = c.s.Write(buf[:])
}

// PutString writes s byte by byte.
func (c *Console) PutString(s string) {
	for i := 0; i < len(s); i++ {
		c.PutByte(s[i])
	}
}

// PutHex32 writes v as 8 uppercase hex digits, no prefix.
func (c *Console) PutHex32(v uint32) {
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	for i := 0; i < 8; i++ {
		c.PutByte(buf[i])
	}
}

// PutDec32 writes v in decimal.
func (c *Console) PutDec32(v uint32) {
	if v == 0 {
		c.PutByte('0')
		return
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = '0' + byte(v%10)
		v /= 10
	}
	for ; i < len(buf); i++ {
		c.PutByte(buf[i])
	}
}

// GetByte blocks until one byte is available. The second return is
// false when the device is closed or failed.
func (c *Console) GetByte() (byte, bool) {
	if c.s == nil {
		return 0, false
	}
	for c.rpos >= c.rlen {
		n, err := c.s.Read(c.rbuf[:])
		if n > 0 {
			c.rlen = n
			c.rpos = 0
			break
		}
		if err != nil {
			return 0, false
		}
	}
	b := c.rbuf[c.rpos]
	c.rpos++
	return b, true
}
