package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"devintrf/config"
	"devintrf/core"
	"devintrf/host/registry"
	"devintrf/logging"
)

// session holds what an action needs and releases it in close
type session struct {
	logger *zap.Logger
	reg    *registry.Registry
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(cfg, logger)
	if err != nil {
		//nolint:errcheck
		logger.Sync()
		return nil, err
	}
	return &session{logger: logger, reg: reg}, nil
}

func (s *session) close() error {
	err := s.reg.Close()
	// stderr cannot be synced on most terminals
	//nolint:errcheck
	s.logger.Sync()
	return err
}

// withInterface enables the interface named by the first argument around fn
func withInterface(c *cli.Context, fn func(iface *core.Interface) error) (err error) {
	name := c.Args().First()
	if name == "" {
		return errors.New("no interface given, see --help")
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.close())
	}()

	iface, ok := s.reg.Get(name)
	if !ok {
		return errors.Errorf("unknown interface %q", name)
	}
	iface.Enable()
	defer iface.Disable()
	return fn(iface)
}

func listAction(c *cli.Context) error {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return err
	}
	for _, ic := range cfg.Interfaces {
		device := ic.Device
		if ic.Kind == config.KindLink && ic.Link.Serial != "" {
			device = "via " + ic.Link.Serial
		}
		fmt.Fprintf(c.App.Writer, "%-12s %-5s %-16s %d\n", ic.Name, ic.Kind, device, ic.Rate)
	}
	return nil
}

func readAction(c *cli.Context) error {
	cmd, err := parseHex(c.String(flagCmd))
	if err != nil {
		return errors.Wrap(err, "--cmd")
	}
	n := c.Int(flagLen)
	if n <= 0 {
		return errors.Errorf("--len must be positive, got %d", n)
	}

	return withInterface(c, func(iface *core.Interface) error {
		buf := make([]byte, n)
		got := iface.Read(c.Int(flagAddr), cmd, buf)
		if got == 0 {
			return errors.New("no data received")
		}
		fmt.Fprintln(c.App.Writer, hex.EncodeToString(buf[:got]))
		if got < n {
			return errors.Errorf("short read, %d of %d bytes", got, n)
		}
		return nil
	})
}

func writeAction(c *cli.Context) error {
	cmd, err := parseHex(c.String(flagCmd))
	if err != nil {
		return errors.Wrap(err, "--cmd")
	}
	data, err := parseHex(c.String(flagData))
	if err != nil {
		return errors.Wrap(err, "--data")
	}
	if len(cmd) == 0 && len(data) == 0 {
		return errors.New("nothing to write, give --cmd or --data")
	}

	return withInterface(c, func(iface *core.Interface) error {
		var got, want int
		if len(data) == 0 {
			got, want = iface.Tx(c.Int(flagAddr), cmd), len(cmd)
		} else {
			got, want = iface.Write(c.Int(flagAddr), cmd, data), len(data)
		}
		fmt.Fprintf(c.App.Writer, "%d bytes written\n", got)
		if got < want {
			return errors.Errorf("short write, %d of %d bytes", got, want)
		}
		return nil
	})
}

func rateAction(c *cli.Context) error {
	var rate int
	if c.Args().Len() > 1 {
		v, err := strconv.Atoi(c.Args().Get(1))
		if err != nil || v <= 0 {
			return errors.Errorf("invalid rate %q", c.Args().Get(1))
		}
		rate = v
	}

	return withInterface(c, func(iface *core.Interface) error {
		if rate > 0 {
			applied := iface.SetRate(rate)
			if applied != rate {
				fmt.Fprintf(c.App.Writer, "requested %d, applied %d\n", rate, applied)
			}
		}
		fmt.Fprintln(c.App.Writer, iface.Rate())
		return nil
	})
}

// parseHex accepts "0a1b", "0x0a1b" and space or colon separated bytes
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", ",", "").Replace(s)
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex %q", s)
	}
	return b, nil
}
