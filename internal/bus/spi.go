// Package bus provides writers that deliver 32-bit register words to the
// synthesizer: a real SPI writer with a GPIO latch-enable line, a serial
// bridge for eval boards behind a helper microcontroller, and a recording
// mock for tests and development.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// latchSettle is the minimum wait after raising LE before the next
	// transfer may start (chip needs ≥5µs to latch).
	latchSettle = 5 * time.Microsecond

	// The chip accepts clocks up to 20 MHz; 4 MHz leaves margin for long
	// jumper wires on bench setups.
	spiSpeed = 4 * physic.MegaHertz

	maxWritesPerSec = 500
)

// SPIWriter drives the synthesizer over a spidev port with a dedicated GPIO
// latch-enable (LE) line. Each word is shifted MSB-first in SPI mode 0 while
// LE is held low; raising LE latches the word into the register file.
type SPIWriter struct {
	mu      sync.Mutex
	port    spi.PortCloser
	conn    spi.Conn
	le      gpio.PinOut
	limiter *rate.Limiter
}

// NewSPI opens the given spidev device (e.g. "/dev/spidev0.0") and claims
// lePin (BCM name, e.g. "GPIO25") as the latch-enable output. LE idles high.
func NewSPI(device, lePin string) (*SPIWriter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bus: host init: %w", err)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("bus: open %s: %w", device, err)
	}
	conn, err := port.Connect(spiSpeed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("bus: connect %s: %w", device, err)
	}

	le := gpioreg.ByName(lePin)
	if le == nil {
		port.Close()
		return nil, fmt.Errorf("bus: failed to open %s (LE pin)", lePin)
	}
	if err := le.Out(gpio.High); err != nil {
		port.Close()
		return nil, fmt.Errorf("bus: set LE idle: %w", err)
	}

	slog.Info("bus: SPI writer ready", "device", device, "le_pin", lePin)
	return &SPIWriter{
		port:    port,
		conn:    conn,
		le:      le,
		limiter: rate.NewLimiter(rate.Limit(maxWritesPerSec), 6),
	}, nil
}

// WriteWord transmits one register word: LE low, four bytes MSB-first, LE
// high, settle. The latch line is released even when the transfer fails.
func (w *SPIWriter) WriteWord(ctx context.Context, word uint32) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.le.Out(gpio.Low); err != nil {
		return fmt.Errorf("bus: assert LE: %w", err)
	}
	buf := []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}
	txErr := w.conn.Tx(buf, nil)
	if err := w.le.Out(gpio.High); err != nil {
		return fmt.Errorf("bus: release LE: %w", err)
	}
	if txErr != nil {
		return fmt.Errorf("bus: spi tx: %w", txErr)
	}
	time.Sleep(latchSettle)
	return nil
}

// Close releases the SPI port.
func (w *SPIWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.port.Close()
}
