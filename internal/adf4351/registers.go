package adf4351

// Register bit positions per the ADF4351 datasheet register map. Every word
// carries its register address in bits [2:0]; the control bits for each
// register occupy disjoint slices above that.

// R0: feedback values.
const (
	r0NIntShift  = 15 // 16 bits
	r0NFracShift = 3  // 12 bits
)

// R1: modulus, phase, prescaler.
const (
	r1ModShift       = 3  // 12 bits
	r1PhaseShift     = 15 // phase adjust word, fixed to 1
	r1PrescalerShift = 27 // 0 = 4/5, 1 = 8/9
)

// R2: reference path and phase detector settings.
const (
	r2PDPolarityShift = 6  // fixed positive
	r2LDPShift        = 7  // lock detect precision, set in integer-N mode
	r2LDFShift        = 8  // lock detect function, set in integer-N mode
	r2ChargePumpShift = 9  // 4 bits
	r2RCounterShift   = 14 // 10 bits
	r2RefDiv2Shift    = 24
	r2DoublerShift    = 25
)

// R3: clock divider.
const (
	r3ClockDivShift = 3 // 12 bits
	r3ClockDivValue = 150
)

// R4: output stage.
const (
	r4PowerShift       = 3 // 2 bits
	r4OutputEnShift    = 5
	r4BandSelShift     = 12 // 8 bits
	r4DivSelShift      = 20 // 3 bits
	r4FeedbackSelShift = 23 // 1 = divided feedback
)

// bandSelClockDiv divides the PFD down to the band-select clock. 200 keeps
// the band-select clock in the vendor-recommended 125-500 kHz window for
// typical PFD frequencies.
const bandSelClockDiv = 200

// R5: lock detect pin mode and reserved bits.
const (
	r5ReservedShift = 19 // two reserved bits, must read 11
	r5ReservedValue = 0x3
	r5LDModeShift   = 22 // digital lock detect on the LD pin
)

// Registers is the full six-word register image, indexed by register address.
type Registers [6]uint32

// OutputConfig holds the static output-stage settings folded into the
// register image. Values are masked to field width during encoding.
type OutputConfig struct {
	Power      uint8 // RF output power code, 0-3
	Enable     bool
	ChargePump uint8 // charge-pump current code, 0-15
}

// Encode packs a synthesis plan plus the reference and output configuration
// into the six register words. Encoding is total: it never fails for a valid
// plan, and has no side effects.
func Encode(p Plan, ref RefConfig, out OutputConfig) Registers {
	var regs Registers

	rc := ref.RCounter
	if rc < 1 {
		rc = 1
	}

	regs[0] = 0x0 |
		(p.NInt&0xFFFF)<<r0NIntShift |
		(p.NFrac&0xFFF)<<r0NFracShift

	regs[1] = 0x1 |
		(p.Mod&0xFFF)<<r1ModShift |
		1<<r1PhaseShift
	if p.Prescaler89 {
		regs[1] |= 1 << r1PrescalerShift
	}

	regs[2] = 0x2 | 1<<r2PDPolarityShift |
		uint32(out.ChargePump&0xF)<<r2ChargePumpShift |
		uint32(rc&0x3FF)<<r2RCounterShift
	if p.IntegerN {
		regs[2] |= 1<<r2LDPShift | 1<<r2LDFShift
	}
	if ref.Div2 {
		regs[2] |= 1 << r2RefDiv2Shift
	}
	if ref.Doubler {
		regs[2] |= 1 << r2DoublerShift
	}

	regs[3] = 0x3 | r3ClockDivValue<<r3ClockDivShift

	// Feedback select is always divided, matching the chip's recommended
	// configuration when the output divider is in the loop. The undivided
	// mode is intentionally never selected regardless of divider value.
	regs[4] = 0x4 |
		uint32(out.Power&0x3)<<r4PowerShift |
		bandSelClockDiv<<r4BandSelShift |
		uint32(p.DivSel&0x7)<<r4DivSelShift |
		1<<r4FeedbackSelShift
	if out.Enable {
		regs[4] |= 1 << r4OutputEnShift
	}

	regs[5] = 0x5 |
		r5ReservedValue<<r5ReservedShift |
		1<<r5LDModeShift

	return regs
}

// WriteOrder returns the words in the order they must reach the chip:
// R5 down to R0. Register 0 re-triggers the chip's internal state machine,
// so it has to be written last or the chip latches a partially-updated
// configuration.
func (r Registers) WriteOrder() []uint32 {
	return []uint32{r[5], r[4], r[3], r[2], r[1], r[0]}
}
