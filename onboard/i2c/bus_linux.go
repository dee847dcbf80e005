//go:build linux

package i2c

import (
	"io"
	"sync"

	deverrors "github.com/CodedInternet/goservoctl/onboard/errors"
	"golang.org/x/sys/unix"
)

// from linux/i2c-dev.h
const i2cSlave = 0x0703

type devBus struct {
	fd     int
	device string
	addr   uint16
	lock   sync.Mutex
	open   bool
}

func openDev(device string, addr uint16) (Conn, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, deverrors.BusUnavailableError{Device: device, Addr: addr, Err: err}
	}

	if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
		unix.Close(fd)
		return nil, deverrors.BusUnavailableError{Device: device, Addr: addr, Err: err}
	}

	return &devBus{fd: fd, device: device, addr: addr, open: true}, nil
}

func (b *devBus) Write(p []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return ErrClosed
	}

	n, err := unix.Write(b.fd, p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

func (b *devBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	return unix.Close(b.fd)
}
