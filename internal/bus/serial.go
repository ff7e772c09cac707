package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// Serial bridge framing: header byte, four data bytes MSB-first, newline
// terminator. The bridge MCU handles LE framing and the post-latch settle on
// its side, acking nothing — the link is assumed non-failing once open.
const (
	serialHeader     = 0x57 // 'W'
	serialTerminator = 0x0A // '\n'
)

// DefaultBaudRate is the bridge's fixed line speed.
const DefaultBaudRate = 115200

// SerialWriter delivers register words to an eval board hung off a USB-UART
// helper microcontroller instead of native SPI pins.
type SerialWriter struct {
	mu   sync.Mutex
	port serial.Port
	dev  string
}

// NewSerial opens the bridge on the given serial device (e.g.
// "/dev/ttyUSB0"). A baud of 0 selects DefaultBaudRate.
func NewSerial(device string, baud int) (*SerialWriter, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: open %s: %w", device, err)
	}
	slog.Info("bus: serial bridge writer ready", "device", device, "baud", baud)
	return &SerialWriter{port: port, dev: device}, nil
}

// WriteWord sends one framed register word to the bridge.
func (w *SerialWriter) WriteWord(ctx context.Context, word uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	frame := []byte{
		serialHeader,
		byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word),
		serialTerminator,
	}
	if _, err := w.port.Write(frame); err != nil {
		return fmt.Errorf("bus: serial write %s: %w", w.dev, err)
	}
	return nil
}

// Close closes the serial port.
func (w *SerialWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.port.Close()
}
