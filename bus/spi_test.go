package bus

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"periph.io/x/conn/v3/physic"

	"devintrf/core"
)

// loopbackSPI returns each written byte plus one and logs chip select
type loopbackSPI struct {
	log    []string
	sent   []byte
	fail   bool
	limit  physic.Frequency
	refuse bool
}

func (c *loopbackSPI) Tx(w, r []byte) error {
	if c.fail {
		return errors.New("bus fault")
	}
	if len(w) != len(r) {
		return errors.Errorf("length mismatch %d/%d", len(w), len(r))
	}
	c.sent = append(c.sent, w...)
	for i := range w {
		r[i] = w[i] + 1
	}
	c.log = append(c.log, fmt.Sprintf("tx(%d)", len(w)))
	return nil
}

func (c *loopbackSPI) LimitSpeed(f physic.Frequency) error {
	if c.refuse {
		return errors.New("refused")
	}
	c.limit = f
	return nil
}

func (c *loopbackSPI) sel(devAddr int, active bool) error {
	c.log = append(c.log, fmt.Sprintf("cs%d=%v", devAddr, active))
	return nil
}

func TestSPIReadSelectsAroundTransaction(t *testing.T) {
	c := &loopbackSPI{}
	s := NewSPI(c, 1000000, c.sel, zaptest.NewLogger(t))
	s.Fill = 0xFF
	iface := core.New(s)

	buf := make([]byte, 2)
	if n := iface.Read(1, []byte{0x80}, buf); n != 2 {
		t.Fatalf("Expected 2 bytes, got %d", n)
	}
	want := []string{"cs1=true", "tx(1)", "tx(2)", "cs1=false"}
	if fmt.Sprint(c.log) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, c.log)
	}
	// fill bytes clocked out, loopback returns them plus one
	if !bytes.Equal(buf, []byte{0x00, 0x00}) {
		t.Errorf("Expected [0 0], got %v", buf)
	}
	if !bytes.Equal(c.sent, []byte{0x80, 0xFF, 0xFF}) {
		t.Errorf("Expected [0x80 0xFF 0xFF] on the wire, got %v", c.sent)
	}
}

func TestSPISelectFailure(t *testing.T) {
	c := &loopbackSPI{}
	iface := core.New(NewSPI(c, 0, func(int, bool) error {
		return errors.New("no such chip select")
	}, zaptest.NewLogger(t)))

	if iface.StartTx(3) {
		t.Error("StartTx should fail when select fails")
	}
	if iface.Busy() {
		t.Error("Guard held after failed select")
	}
}

func TestSPITransferError(t *testing.T) {
	c := &loopbackSPI{fail: true}
	iface := core.New(NewSPI(c, 0, nil, zaptest.NewLogger(t)), core.WithMaxRetry(2))

	if n := iface.Tx(0, []byte{1, 2}); n != 0 {
		t.Errorf("Expected 0, got %d", n)
	}
}

func TestSPIExchange(t *testing.T) {
	c := &loopbackSPI{}
	s := NewSPI(c, 0, nil, nil)

	r := make([]byte, 3)
	if n := s.Exchange([]byte{1, 2, 3}, r); n != 3 {
		t.Fatalf("Expected 3, got %d", n)
	}
	if !bytes.Equal(r, []byte{2, 3, 4}) {
		t.Errorf("Expected [2 3 4], got %v", r)
	}
	if n := s.Exchange([]byte{1}, make([]byte, 2)); n != 0 {
		t.Errorf("Mismatched lengths should fail, got %d", n)
	}
}

func TestSPISetRate(t *testing.T) {
	c := &loopbackSPI{}
	iface := core.New(NewSPI(c, 1000000, nil, zaptest.NewLogger(t)))

	if iface.Rate() != 1000000 {
		t.Errorf("Expected 1000000, got %d", iface.Rate())
	}
	if r := iface.SetRate(8000000); r != 8000000 {
		t.Errorf("Expected 8000000, got %d", r)
	}
	if c.limit != 8*physic.MegaHertz {
		t.Errorf("Expected port limited to 8MHz, got %v", c.limit)
	}

	c.refuse = true
	if r := iface.SetRate(2000000); r != 8000000 {
		t.Errorf("Refused change should keep 8000000, got %d", r)
	}
}
