package adf4351

import "errors"

// Planning errors. Both leave the device untouched and are safe to retry
// with corrected inputs.
var (
	// ErrOutOfRange means the requested output frequency is outside the
	// chip's 35-4400 MHz output range. Rejected before any computation.
	ErrOutOfRange = errors.New("adf4351: output frequency outside 35-4400 MHz range")

	// ErrPlanInfeasible means the computed VCO frequency landed outside the
	// legal 2200-4400 MHz window after divider selection. Rejected before
	// any register write.
	ErrPlanInfeasible = errors.New("adf4351: unable to plan frequency, VCO out of range")
)
