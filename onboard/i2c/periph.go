package i2c

import (
	"sync"

	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	periphOnce sync.Once
	periphErr  error
)

type periphBus struct {
	bus periphi2c.BusCloser
	dev *periphi2c.Dev
}

// openPeriph opens a bus by its periph registry name ("" selects the first bus).
func openPeriph(name string, addr uint16) (Conn, error) {
	periphOnce.Do(func() {
		_, periphErr = host.Init()
	})
	if periphErr != nil {
		return nil, deverrors.BusUnavailableError{Device: name, Addr: addr, Err: periphErr}
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, deverrors.BusUnavailableError{Device: name, Addr: addr, Err: err}
	}

	return &periphBus{
		bus: bus,
		dev: &periphi2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

func (b *periphBus) Write(p []byte) error {
	return b.dev.Tx(p, nil)
}

func (b *periphBus) Close() error {
	return b.bus.Close()
}
