package adf4351

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Defaults match a bare eval board: 25 MHz TCXO straight into the PFD,
// maximum output power, mid-range charge-pump current.
const (
	DefaultRefFreqMHz     = 25.0
	defaultPower          = 3
	defaultChargePumpCode = 7
)

// BusWriter transmits one 32-bit register word to the chip: four bytes
// MSB-first while the latch-enable line is held low, then a latch pulse and
// a ≥5µs settle before returning.
type BusWriter interface {
	WriteWord(ctx context.Context, word uint32) error
}

// Device is a session with one synthesizer chip. It owns the current
// reference and output configuration and the last successful plan. Methods
// are safe for concurrent use, but callers sharing a Device must still
// serialize retunes at their level if they care about ordering between them.
type Device struct {
	mu  sync.Mutex
	bus BusWriter

	ref RefConfig
	out OutputConfig

	freqMHz float64 // last successfully planned frequency, 0 before first retune
	plan    Plan
	regs    Registers
	planned bool
}

// NewDevice creates a device session writing through bus, with default
// reference (25 MHz, R=1) and output settings (power 3, enabled, charge
// pump 7).
func NewDevice(bus BusWriter) *Device {
	return &Device{
		bus: bus,
		ref: RefConfig{RefFreqMHz: DefaultRefFreqMHz, RCounter: 1},
		out: OutputConfig{Power: defaultPower, Enable: true, ChargePump: defaultChargePumpCode},
	}
}

// SetReference reconfigures the reference path and recomputes the PFD
// frequency. Any prior plan is invalidated: the device drops back to the
// idle state until the next successful SetFrequency. An R-counter below 1
// is defaulted to 1.
func (d *Device) SetReference(ref RefConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ref.RCounter < 1 {
		ref.RCounter = 1
	}
	d.ref = ref
	d.freqMHz = 0
	d.planned = false
	slog.Debug("adf4351: reference configured",
		"ref_mhz", ref.RefFreqMHz,
		"r_counter", ref.RCounter,
		"doubler", ref.Doubler,
		"div2", ref.Div2,
		"pfd_mhz", ref.PFDFreqMHz(),
	)
}

// SetFrequency plans the target frequency, encodes the register image and
// writes it R5 through R0. On any failure — planning or bus — the previous
// configuration remains in effect and no state is recorded. A spacing of 0
// selects the 0.01 MHz default.
func (d *Device) SetFrequency(ctx context.Context, freqMHz, spacingMHz float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	plan, err := PlanFrequency(freqMHz, spacingMHz, d.ref.PFDFreqMHz())
	if err != nil {
		return err
	}
	regs := Encode(plan, d.ref, d.out)

	for _, word := range regs.WriteOrder() {
		if err := d.bus.WriteWord(ctx, word); err != nil {
			return fmt.Errorf("adf4351: write register %d: %w", word&0x7, err)
		}
	}

	d.freqMHz = freqMHz
	d.plan = plan
	d.regs = regs
	d.planned = true
	slog.Debug("adf4351: retuned",
		"freq_mhz", freqMHz,
		"vco_mhz", plan.VCOFreqMHz,
		"divider", plan.Divider,
		"n_int", plan.NInt,
		"n_frac", plan.NFrac,
		"mod", plan.Mod,
		"integer_n", plan.IntegerN,
	)
	return nil
}

// SetOutputPower sets the RF output power code, clamped to 0-3. Takes effect
// on the next SetFrequency.
func (d *Device) SetOutputPower(power int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if power < 0 {
		power = 0
	}
	if power > 3 {
		power = 3
	}
	d.out.Power = uint8(power)
}

// EnableOutput sets the RF output enable bit. Takes effect on the next
// SetFrequency.
func (d *Device) EnableOutput(enable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out.Enable = enable
}

// SetChargePumpCurrent sets the charge-pump current code, clamped to 0-15.
// Takes effect on the next SetFrequency.
func (d *Device) SetChargePumpCurrent(code int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code < 0 {
		code = 0
	}
	if code > 15 {
		code = 15
	}
	d.out.ChargePump = uint8(code)
}

// Frequency returns the last successfully planned output frequency in MHz,
// or 0 if no retune has succeeded since the reference was last configured.
func (d *Device) Frequency() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freqMHz
}

// PFDFrequency returns the current phase-detector frequency in MHz.
func (d *Device) PFDFrequency() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ref.PFDFreqMHz()
}

// Reference returns the current reference configuration.
func (d *Device) Reference() RefConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ref
}

// Output returns the current output-stage configuration.
func (d *Device) Output() OutputConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out
}

// Plan returns the last successful synthesis plan. ok is false before the
// first successful retune and after any reference change.
func (d *Device) Plan() (p Plan, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plan, d.planned
}

// Registers returns the last written register image. ok follows Plan.
func (d *Device) Registers() (regs Registers, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs, d.planned
}
