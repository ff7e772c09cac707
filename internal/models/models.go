// Package models defines the data structures shared by the controller, the
// config store and the HTTP API.
package models

// Settings is the persisted device configuration: the reference path, the
// last requested frequency and the static output-stage options.
type Settings struct {
	RefFreqMHz float64 `json:"ref_freq_mhz"`
	RCounter   int     `json:"r_counter"`
	RefDoubler bool    `json:"ref_doubler"`
	RefDiv2    bool    `json:"ref_div2"`

	FreqMHz    float64 `json:"freq_mhz"` // 0 = no frequency programmed
	SpacingMHz float64 `json:"spacing_mhz"`

	Power      int  `json:"power"`       // RF output power code, 0-3
	Enabled    bool `json:"enabled"`     // RF output enable
	ChargePump int  `json:"charge_pump"` // charge-pump current code, 0-15
}

// DefaultSettings matches a bare eval board: 25 MHz reference straight into
// the PFD, 10 kHz channel spacing, output on at full power.
func DefaultSettings() Settings {
	return Settings{
		RefFreqMHz: 25.0,
		RCounter:   1,
		SpacingMHz: 0.01,
		Power:      3,
		Enabled:    true,
		ChargePump: 7,
	}
}

// Normalize clamps numeric fields to their hardware ranges and fills zero
// values with defaults, so hand-edited or older settings files load cleanly.
func (s *Settings) Normalize() {
	if s.RefFreqMHz <= 0 {
		s.RefFreqMHz = 25.0
	}
	if s.RCounter < 1 {
		s.RCounter = 1
	}
	if s.SpacingMHz <= 0 {
		s.SpacingMHz = 0.01
	}
	if s.Power < 0 {
		s.Power = 0
	}
	if s.Power > 3 {
		s.Power = 3
	}
	if s.ChargePump < 0 {
		s.ChargePump = 0
	}
	if s.ChargePump > 15 {
		s.ChargePump = 15
	}
}

// PlanInfo is the synthesis plan behind the currently programmed frequency.
type PlanInfo struct {
	Divider     int     `json:"divider"`
	VCOFreqMHz  float64 `json:"vco_freq_mhz"`
	NInt        int     `json:"n_int"`
	NFrac       int     `json:"n_frac"`
	Mod         int     `json:"mod"`
	Prescaler89 bool    `json:"prescaler_8_9"`
	IntegerN    bool    `json:"integer_n"`
}

// Status is the live device view returned by the API and streamed over SSE.
// Plan and Registers are present only while a frequency is programmed.
type Status struct {
	Settings
	PFDFreqMHz float64   `json:"pfd_freq_mhz"`
	Programmed bool      `json:"programmed"`
	Plan       *PlanInfo `json:"plan,omitempty"`
	Registers  []string  `json:"registers,omitempty"` // six words, hex, R0 first
}

// FrequencyRequest asks for a retune. A zero spacing keeps the configured one.
type FrequencyRequest struct {
	FreqMHz    float64 `json:"freq_mhz"`
	SpacingMHz float64 `json:"spacing_mhz,omitempty"`
}

// ReferenceRequest reconfigures the reference path.
type ReferenceRequest struct {
	RefFreqMHz float64 `json:"ref_freq_mhz"`
	RCounter   int     `json:"r_counter"`
	Doubler    bool    `json:"doubler"`
	Div2       bool    `json:"div2"`
}

// OutputUpdate is a partial update of the output-stage settings. Nil fields
// are left unchanged. Changes latch on the next retune.
type OutputUpdate struct {
	Power      *int  `json:"power,omitempty"`
	Enabled    *bool `json:"enabled,omitempty"`
	ChargePump *int  `json:"charge_pump,omitempty"`
}
