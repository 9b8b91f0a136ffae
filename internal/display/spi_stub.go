//go:build !linux

package display

import "errors"

// SPIConfig locates the shift register chain.
type SPIConfig struct {
	Device      string
	SpeedHz     int
	Chip        string
	LatchOffset int
}

// SPI is not available on non-Linux platforms.
type SPI struct{}

// OpenSPI returns an error on non-Linux platforms.
func OpenSPI(cfg SPIConfig) (*SPI, error) {
	return nil, errors.New("display: spi not supported on this platform (requires Linux)")
}

// Show is not implemented on non-Linux platforms.
func (s *SPI) Show(value uint32) error {
	return errors.New("display: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *SPI) Close() error {
	return nil
}
