// Package adf4351 computes register configurations for the ADF4351 wideband
// integer/fractional-N PLL frequency synthesizer. The planner derives the RF
// output divider, VCO frequency and feedback values for a target frequency;
// the encoder packs them into the chip's six 32-bit register words.
package adf4351

import "math"

// Output frequency limits of the chip, MHz.
const (
	MinFreqMHz = 35.0
	MaxFreqMHz = 4400.0
)

// Legal VCO window, MHz. 4400 is inclusive (datasheet upper limit).
const (
	vcoMinMHz = 2200.0
	vcoMaxMHz = 4400.0
)

// maxMod is the largest modulus the 12-bit MOD field can carry. Requests for
// finer channel spacing than MOD=4095 allows are silently clamped, reducing
// resolution below the requested spacing.
const maxMod = 4095

// prescalerThreshold is the N_int value at which the 8/9 prescaler becomes
// mandatory (vendor timing constraint).
const prescalerThreshold = 75

// DefaultSpacingMHz is the channel spacing used when the caller passes 0.
const DefaultSpacingMHz = 0.01

// RefConfig describes the reference input path: input frequency, R-counter
// division and the optional doubler / divide-by-2 stages.
type RefConfig struct {
	RefFreqMHz float64
	RCounter   int
	Doubler    bool
	Div2       bool
}

// PFDFreqMHz returns the phase-detector frequency derived from the reference
// path: ref × (1+doubler) / (R × (1+div2)). An R-counter below 1 is treated
// as 1.
func (r RefConfig) PFDFreqMHz() float64 {
	rc := r.RCounter
	if rc < 1 {
		rc = 1
	}
	num := r.RefFreqMHz
	if r.Doubler {
		num *= 2
	}
	den := float64(rc)
	if r.Div2 {
		den *= 2
	}
	return num / den
}

// Band maps output frequencies at or above ThresholdMHz to an RF output
// divider and its 3-bit select code.
type Band struct {
	ThresholdMHz float64
	Divider      int
	SelCode      uint8
}

// dividerBands is ordered highest band first; each threshold is exactly half
// the previous, doubling the divider per band boundary. The final catch-all
// band has threshold 0.
var dividerBands = []Band{
	{2200, 1, 0},
	{1100, 2, 1},
	{550, 4, 2},
	{275, 8, 3},
	{137.5, 16, 4},
	{68.75, 32, 5},
	{0, 64, 6},
}

// Bands returns a copy of the divider band table.
func Bands() []Band {
	out := make([]Band, len(dividerBands))
	copy(out, dividerBands)
	return out
}

func selectBand(freqMHz float64) Band {
	for _, b := range dividerBands {
		if freqMHz >= b.ThresholdMHz {
			return b
		}
	}
	return dividerBands[len(dividerBands)-1]
}

// Plan is the result of frequency planning: everything the encoder needs that
// depends on the target frequency. Plans are ephemeral — recomputed on every
// retune, never persisted.
type Plan struct {
	FreqMHz     float64 // requested output frequency
	Divider     int     // RF output divider, one of 1,2,4,8,16,32,64
	DivSel      uint8   // 3-bit divider select code, 0-6
	VCOFreqMHz  float64 // FreqMHz × Divider, in [2200, 4400]
	NInt        uint32  // integer feedback value
	NFrac       uint32  // fractional feedback value, 0 ≤ NFrac < Mod
	Mod         uint32  // fractional modulus, 1-4095
	Prescaler89 bool    // true = 8/9 prescaler, false = 4/5
	IntegerN    bool    // NFrac == 0: integer-N mode, precise lock detect
}

// PlanFrequency computes a synthesis plan for the target frequency given the
// channel spacing and the current phase-detector frequency. It is a pure
// function: no device state is touched, and a failed plan has no side
// effects. A spacing of 0 or less selects DefaultSpacingMHz.
func PlanFrequency(freqMHz, spacingMHz, pfdMHz float64) (Plan, error) {
	if freqMHz < MinFreqMHz || freqMHz > MaxFreqMHz {
		return Plan{}, ErrOutOfRange
	}
	if spacingMHz <= 0 {
		spacingMHz = DefaultSpacingMHz
	}

	b := selectBand(freqMHz)
	vco := freqMHz * float64(b.Divider)
	// Band edges and float rounding can push the VCO fractionally outside
	// the window, so the table lookup alone is not trusted.
	if vco < vcoMinMHz || vco > vcoMaxMHz {
		return Plan{}, ErrPlanInfeasible
	}

	n := vco / pfdMHz
	nInt := uint32(math.Floor(n))

	modF := math.Round(pfdMHz / spacingMHz)
	if modF > maxMod {
		modF = maxMod
	}
	if modF < 1 {
		modF = 1
	}
	mod := uint32(modF)

	nFrac := uint32(math.Round((n - float64(nInt)) * float64(mod)))
	if nFrac >= mod { // rounding overflow, carry into the integer part
		nInt += nFrac / mod
		nFrac %= mod
	}

	return Plan{
		FreqMHz:     freqMHz,
		Divider:     b.Divider,
		DivSel:      b.SelCode,
		VCOFreqMHz:  vco,
		NInt:        nInt,
		NFrac:       nFrac,
		Mod:         mod,
		Prescaler89: nInt >= prescalerThreshold,
		IntegerN:    nFrac == 0,
	}, nil
}
