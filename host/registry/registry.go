// Package registry builds the configured device transfer interfaces.
package registry

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"devintrf/bus"
	"devintrf/config"
	"devintrf/core"
	"devintrf/host/serial"
	"devintrf/protocol"
)

// I2COpener opens an I2C bus by name
type I2COpener func(name string, logger *zap.Logger) (*bus.I2C, io.Closer, error)

// SPIOpener opens an SPI port by name
type SPIOpener func(name string, rate, mode, bits int, logger *zap.Logger) (*bus.SPI, io.Closer, error)

// Registry owns the interfaces built from a configuration
type Registry struct {
	logger  *zap.Logger
	ifaces  map[string]*core.Interface
	uarts   map[string]*serial.UART
	closers []io.Closer

	openI2C    I2COpener
	openSPI    SPIOpener
	openSerial serial.OpenFunc
}

// Option configures a Registry
type Option func(*Registry)

// WithI2COpener replaces the periph.io I2C opener
func WithI2COpener(open I2COpener) Option {
	return func(r *Registry) {
		r.openI2C = open
	}
}

// WithSPIOpener replaces the periph.io SPI opener
func WithSPIOpener(open SPIOpener) Option {
	return func(r *Registry) {
		r.openSPI = open
	}
}

// WithSerialOpener replaces the serial port opener
func WithSerialOpener(open serial.OpenFunc) Option {
	return func(r *Registry) {
		r.openSerial = open
	}
}

// Open builds every interface in cfg. Buses are opened immediately, serial
// ports on Enable. On error everything already opened is closed again.
func Open(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:     logger,
		ifaces:     make(map[string]*core.Interface),
		uarts:      make(map[string]*serial.UART),
		openI2C:    bus.OpenPeriphI2C,
		openSPI:    bus.OpenPeriphSPI,
		openSerial: serial.Open,
	}
	for _, opt := range opts {
		opt(r)
	}

	// uarts first so links can refer to them
	for _, ic := range cfg.Interfaces {
		if ic.Kind != config.KindUART {
			continue
		}
		if err := r.add(ic); err != nil {
			return nil, multierr.Combine(err, r.Close())
		}
	}
	for _, ic := range cfg.Interfaces {
		if ic.Kind == config.KindUART {
			continue
		}
		if err := r.add(ic); err != nil {
			return nil, multierr.Combine(err, r.Close())
		}
	}
	return r, nil
}

func (r *Registry) add(ic config.InterfaceConfig) error {
	logger := r.logger.Named(ic.Name)

	var t core.Transport
	var link *protocol.Link
	switch ic.Kind {
	case config.KindUART:
		u := r.newUART(ic, logger)
		r.uarts[ic.Name] = u
		t = u
	case config.KindLink:
		open := r.linkOpener(ic, logger)
		link = protocol.NewLink(open, protocol.LinkConfig{
			Address: ic.Link.Address,
			RxQueue: ic.Link.RxQueue,
			Rate:    ic.Rate,
		}, logger)
		t = link
	case config.KindI2C:
		b, closer, err := r.openI2C(ic.Device, logger)
		if err != nil {
			return errors.Wrapf(err, "interface %q", ic.Name)
		}
		r.closers = append(r.closers, closer)
		b.SetRate(ic.Rate)
		t = b
	case config.KindSPI:
		s, closer, err := r.openSPI(ic.Device, ic.Rate, ic.SPI.Mode, ic.SPI.Bits, logger)
		if err != nil {
			return errors.Wrapf(err, "interface %q", ic.Name)
		}
		r.closers = append(r.closers, closer)
		t = s
	default:
		return errors.Errorf("interface %q: unknown kind %q", ic.Name, ic.Kind)
	}

	opts := []core.Option{
		core.WithMaxRetry(ic.MaxRetry),
		core.WithInterruptPriority(ic.InterruptPriority),
		core.WithLogger(logger),
	}
	if ic.StrictCommand {
		opts = append(opts, core.WithStrictCommand())
	}
	iface := core.New(t, opts...)
	if link != nil {
		link.Bind(iface)
	}
	r.ifaces[ic.Name] = iface
	logger.Debug("interface ready", zap.String("kind", ic.Kind), zap.String("device", ic.Device))
	return nil
}

func (r *Registry) newUART(ic config.InterfaceConfig, logger *zap.Logger) *serial.UART {
	return serial.NewUART(serial.Config{
		Device:      ic.Device,
		Baud:        ic.Rate,
		ReadTimeout: ic.UART.ReadTimeoutMs,
	}, logger, serial.WithOpenFunc(r.openSerial))
}

func (r *Registry) linkOpener(ic config.InterfaceConfig, logger *zap.Logger) protocol.Opener {
	if ic.Link.Serial != "" {
		if u := r.uarts[ic.Link.Serial]; u != nil {
			return u.Opener()
		}
	}
	return r.newUART(ic, logger).Opener()
}

// Get returns the named interface
func (r *Registry) Get(name string) (*core.Interface, bool) {
	iface, ok := r.ifaces[name]
	return iface, ok
}

// Names returns the interface names in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ifaces))
	for name := range r.ifaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close disables every interface still enabled and closes the buses
func (r *Registry) Close() error {
	for _, name := range r.Names() {
		iface := r.ifaces[name]
		for iface.EnableCount() > 0 {
			iface.Disable()
		}
	}

	var err error
	for _, c := range r.closers {
		err = multierr.Append(err, c.Close())
	}
	r.closers = nil
	return err
}
