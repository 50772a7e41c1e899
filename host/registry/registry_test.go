package registry

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"devintrf/bus"
	"devintrf/config"
	"devintrf/host/serial"
)

const sample = `
interfaces:
  - name: sensors
    kind: i2c
    device: "1"
    rate: 400000
    maxRetry: 3
  - name: flash
    kind: spi
    device: SPI0.0
    strictCommand: true
  - name: console
    kind: uart
    device: /dev/ttyUSB0
  - name: node
    kind: link
    link:
      serial: console
      address: 2
`

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type memI2C struct {
	last []byte
}

func (m *memI2C) Tx(addr uint16, w, r []byte) error {
	m.last = append([]byte(nil), w...)
	for i := range r {
		r[i] = byte(addr)
	}
	return nil
}

type memSPI struct{}

func (memSPI) Tx(w, r []byte) error {
	copy(r, w)
	return nil
}

// blockingPort reads nothing until closed
type blockingPort struct {
	closed chan struct{}
	out    bytes.Buffer
}

func (p *blockingPort) Read(b []byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *blockingPort) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p *blockingPort) Close() error {
	close(p.closed)
	return nil
}

func (p *blockingPort) Flush() error { return nil }

type fixture struct {
	i2c      *memI2C
	closes   int
	devices  []string
	ports    []*blockingPort
	spiError error
}

func (f *fixture) options() []Option {
	return []Option{
		WithI2COpener(func(name string, logger *zap.Logger) (*bus.I2C, io.Closer, error) {
			f.devices = append(f.devices, "i2c:"+name)
			return bus.NewI2C(f.i2c, logger), closerFunc(func() error {
				f.closes++
				return nil
			}), nil
		}),
		WithSPIOpener(func(name string, rate, mode, bits int, logger *zap.Logger) (*bus.SPI, io.Closer, error) {
			if f.spiError != nil {
				return nil, nil, f.spiError
			}
			f.devices = append(f.devices, "spi:"+name)
			return bus.NewSPI(memSPI{}, rate, nil, logger), closerFunc(func() error {
				f.closes++
				return nil
			}), nil
		}),
		WithSerialOpener(func(cfg *serial.Config) (serial.Port, error) {
			f.devices = append(f.devices, "uart:"+cfg.Device)
			p := &blockingPort{closed: make(chan struct{})}
			f.ports = append(f.ports, p)
			return p, nil
		}),
	}
}

func openSample(t *testing.T, f *fixture) *Registry {
	cfg, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(cfg, zaptest.NewLogger(t), f.options()...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r
}

func TestOpenBuildsInterfaces(t *testing.T) {
	f := &fixture{i2c: &memI2C{}}
	r := openSample(t, f)
	defer r.Close()

	want := []string{"console", "flash", "node", "sensors"}
	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
			break
		}
	}

	sensors, ok := r.Get("sensors")
	if !ok {
		t.Fatal("sensors missing")
	}
	if sensors.MaxRetry() != 3 {
		t.Errorf("Expected max retry 3, got %d", sensors.MaxRetry())
	}
	if sensors.Rate() != 400000 {
		t.Errorf("Expected 400kHz, got %d", sensors.Rate())
	}

	buf := make([]byte, 2)
	if n := sensors.Read(0x29, []byte{0x01}, buf); n != 2 || buf[0] != 0x29 {
		t.Errorf("Read through the registry failed: %d %v", n, buf)
	}

	// serial ports open lazily
	if len(f.ports) != 0 {
		t.Errorf("Serial port opened before Enable")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Lookup of a missing interface succeeded")
	}
}

func TestLinkUsesNamedUART(t *testing.T) {
	f := &fixture{i2c: &memI2C{}}
	r := openSample(t, f)

	node, _ := r.Get("node")
	node.Enable()
	if len(f.ports) != 1 || f.devices[len(f.devices)-1] != "uart:/dev/ttyUSB0" {
		t.Fatalf("Expected the link to open the console device, got %v", f.devices)
	}
	if n := node.Tx(5, []byte{1, 2}); n != 2 {
		t.Errorf("Expected 2 bytes sent, got %d", n)
	}
	if f.ports[0].out.Len() == 0 {
		t.Error("Nothing written to the port")
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if node.EnableCount() != 0 {
		t.Errorf("Close left the link enabled")
	}
	select {
	case <-f.ports[0].closed:
	default:
		t.Error("Port not closed")
	}
}

func TestCloseReleasesBuses(t *testing.T) {
	f := &fixture{i2c: &memI2C{}}
	r := openSample(t, f)

	console, _ := r.Get("console")
	console.Enable()
	console.Enable()

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if f.closes != 2 {
		t.Errorf("Expected 2 bus closes, got %d", f.closes)
	}
	if console.EnableCount() != 0 {
		t.Errorf("Expected console disabled, count %d", console.EnableCount())
	}
}

func TestOpenFailureClosesOpened(t *testing.T) {
	f := &fixture{i2c: &memI2C{}, spiError: errors.New("no spidev")}
	cfg, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Open(cfg, zaptest.NewLogger(t), f.options()...)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if f.closes != 1 {
		t.Errorf("Expected the i2c bus closed again, got %d closes", f.closes)
	}
}

func TestLinkAndUARTShareDeviceExclusively(t *testing.T) {
	f := &fixture{i2c: &memI2C{}}
	r := openSample(t, f)
	defer r.Close()

	node, _ := r.Get("node")
	console, _ := r.Get("console")

	node.Enable()
	console.Enable()
	if len(f.ports) != 1 {
		t.Fatalf("Expected one open device, got %d", len(f.ports))
	}
	if console.StartRx(0) {
		t.Error("console started while the link holds the device")
	}

	console.Disable()
	node.Disable()
	console.Enable()
	if len(f.ports) != 2 || !console.StartRx(0) {
		t.Fatalf("console should open once the link released the device, opens=%d", len(f.ports))
	}
	console.StopRx()
}
