package console

import (
	"testing"

	"kacchi/hal"
)

func TestPutStringExpandsNewlines(t *testing.T) {
	ser := hal.NewMemSerial("")
	c := New(ser)
	c.PutString("ab\ncd\n")
	if got := ser.Output(); got != "ab\r\ncd\r\n" {
		t.Fatalf("output = %q; want CRLF expansion", got)
	}
}

func TestPutHex32(t *testing.T) {
	tcs := []struct {
		v    uint32
		want string
	}{
		{0, "00000000"},
		{0x2A, "0000002A"},
		{0xDEADBEEF, "DEADBEEF"},
		{0x00200000, "00200000"},
	}
	for _, tc := range tcs {
		ser := hal.NewMemSerial("")
		c := New(ser)
		c.PutHex32(tc.v)
		if got := ser.Output(); got != tc.want {
			t.Fatalf("PutHex32(%#x) = %q; want %q", tc.v, got, tc.want)
		}
	}
}

func TestPutDec32(t *testing.T) {
	tcs := []struct {
		v    uint32
		want string
	}{
		{0, "0"},
		{7, "7"},
		{150, "150"},
		{4294967295, "4294967295"},
	}
	for _, tc := range tcs {
		ser := hal.NewMemSerial("")
		c := New(ser)
		c.PutDec32(tc.v)
		if got := ser.Output(); got != tc.want {
			t.Fatalf("PutDec32(%d) = %q; want %q", tc.v, got, tc.want)
		}
	}
}

func TestGetByteDrainsThenFails(t *testing.T) {
	c := New(hal.NewMemSerial("ab"))
	for _, want := range []byte{'a', 'b'} {
		b, ok := c.GetByte()
		if !ok || b != want {
			t.Fatalf("GetByte = %q/%v; want %q", b, ok, want)
		}
	}
	if _, ok := c.GetByte(); ok {
		t.Fatal("GetByte succeeded past end of input")
	}
}

func TestNilSerialIsInert(t *testing.T) {
	c := New(nil)
	c.PutString("dropped\n")
	if _, ok := c.GetByte(); ok {
		t.Fatal("GetByte on nil serial succeeded")
	}
}
