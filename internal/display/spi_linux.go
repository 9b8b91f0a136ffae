//go:build linux

package display

import (
	"errors"
	"fmt"
	"os"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// spiIOCWrMaxSpeedHz is SPI_IOC_WR_MAX_SPEED_HZ from linux/spi/spidev.h.
const spiIOCWrMaxSpeedHz = 0x40046b04

// SPIConfig locates the shift register chain.
type SPIConfig struct {
	Device      string // e.g. /dev/spidev0.0
	SpeedHz     int
	Chip        string // gpio chip holding the latch line
	LatchOffset int
}

// SPI shows values on the seven-segment readout through spidev.
type SPI struct {
	shiftRegister
	dev  *os.File
	line *gpiocdev.Line
}

// OpenSPI opens the SPI device and latch line and blanks the readout.
func OpenSPI(cfg SPIConfig) (*SPI, error) {
	dev, err := os.OpenFile(cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open spi device: %w", err)
	}
	if cfg.SpeedHz > 0 {
		if err := unix.IoctlSetPointerInt(int(dev.Fd()), spiIOCWrMaxSpeedHz, cfg.SpeedHz); err != nil {
			dev.Close()
			return nil, fmt.Errorf("set spi speed %d: %w", cfg.SpeedHz, err)
		}
	}

	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.LatchOffset,
		gpiocdev.AsOutput(0), gpiocdev.WithConsumer("apm-stick-latch"))
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("request latch line %d: %w", cfg.LatchOffset, err)
	}

	s := &SPI{
		shiftRegister: shiftRegister{w: dev, latch: line},
		dev:           dev,
		line:          line,
	}
	if err := s.write(Blank); err != nil {
		s.Close()
		return nil, fmt.Errorf("blank display: %w", err)
	}
	return s, nil
}

// Close blanks the readout and releases the device and latch line.
func (s *SPI) Close() error {
	var errs []error
	if err := s.write(Blank); err != nil {
		errs = append(errs, err)
	}
	if err := s.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close latch: %w", err))
	}
	if err := s.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close spi device: %w", err))
	}
	return errors.Join(errs...)
}
