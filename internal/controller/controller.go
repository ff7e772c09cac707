// Package controller owns the device session: it binds the synthesizer
// driver to the settings store and the event bus, and is the single place
// settings are mutated.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sdrworks/synthpi/internal/adf4351"
	"github.com/sdrworks/synthpi/internal/config"
	"github.com/sdrworks/synthpi/internal/events"
	"github.com/sdrworks/synthpi/internal/models"
)

// Controller applies settings to the device, persists them and publishes
// status snapshots after every change.
type Controller struct {
	mu       sync.Mutex
	dev      *adf4351.Device
	store    config.Store
	bus      *events.Bus
	settings models.Settings
}

// New creates a controller, loads the persisted settings and applies them to
// the device. A stored frequency is re-programmed at startup; if that fails
// (e.g. the stored reference makes it unplannable) the frequency is cleared
// rather than failing startup.
func New(dev *adf4351.Device, store config.Store, bus *events.Bus) (*Controller, error) {
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("controller: load settings: %w", err)
	}
	settings.Normalize()

	c := &Controller{
		dev:      dev,
		store:    store,
		bus:      bus,
		settings: *settings,
	}
	c.applySettings(context.Background())
	return c, nil
}

// applySettings pushes c.settings to the device: reference path, output
// options and, when a frequency is stored, a retune. Callers hold no lock or
// the controller lock; the device has its own.
func (c *Controller) applySettings(ctx context.Context) {
	s := c.settings
	c.dev.SetReference(adf4351.RefConfig{
		RefFreqMHz: s.RefFreqMHz,
		RCounter:   s.RCounter,
		Doubler:    s.RefDoubler,
		Div2:       s.RefDiv2,
	})
	c.dev.SetOutputPower(s.Power)
	c.dev.EnableOutput(s.Enabled)
	c.dev.SetChargePumpCurrent(s.ChargePump)

	if s.FreqMHz > 0 {
		if err := c.dev.SetFrequency(ctx, s.FreqMHz, s.SpacingMHz); err != nil {
			slog.Warn("controller: could not re-program stored frequency",
				"freq_mhz", s.FreqMHz, "err", err)
			c.settings.FreqMHz = 0
		}
	}
}

// Status returns the live device view.
func (c *Controller) Status() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

// status builds a Status snapshot. Caller holds c.mu.
func (c *Controller) status() models.Status {
	st := models.Status{
		Settings:   c.settings,
		PFDFreqMHz: c.dev.PFDFrequency(),
	}
	if plan, ok := c.dev.Plan(); ok {
		st.Programmed = true
		st.Plan = &models.PlanInfo{
			Divider:     plan.Divider,
			VCOFreqMHz:  plan.VCOFreqMHz,
			NInt:        int(plan.NInt),
			NFrac:       int(plan.NFrac),
			Mod:         int(plan.Mod),
			Prescaler89: plan.Prescaler89,
			IntegerN:    plan.IntegerN,
		}
	}
	if regs, ok := c.dev.Registers(); ok {
		hex := make([]string, len(regs))
		for i, w := range regs {
			hex[i] = fmt.Sprintf("0x%08X", w)
		}
		st.Registers = hex
	}
	return st
}

// SetFrequency retunes the device and persists the new frequency. A zero
// spacing in the request keeps the configured channel spacing. On failure no
// settings change and the device keeps its previous configuration.
func (c *Controller) SetFrequency(ctx context.Context, req models.FrequencyRequest) (models.Status, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	spacing := req.SpacingMHz
	if spacing <= 0 {
		spacing = c.settings.SpacingMHz
	}

	if err := c.dev.SetFrequency(ctx, req.FreqMHz, spacing); err != nil {
		return models.Status{}, planError(err)
	}

	c.settings.FreqMHz = req.FreqMHz
	c.settings.SpacingMHz = spacing
	c.persistAndPublish()
	return c.status(), nil
}

// SetReference reconfigures the reference path. Any prior plan is
// invalidated; when a frequency was programmed the controller immediately
// re-tunes it against the new phase-detector frequency, clearing it if that
// is no longer plannable.
func (c *Controller) SetReference(ctx context.Context, req models.ReferenceRequest) (models.Status, *models.AppError) {
	if req.RefFreqMHz <= 0 {
		return models.Status{}, models.ErrBadRequest("ref_freq_mhz must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rc := req.RCounter
	if rc < 1 {
		rc = 1
	}
	c.dev.SetReference(adf4351.RefConfig{
		RefFreqMHz: req.RefFreqMHz,
		RCounter:   rc,
		Doubler:    req.Doubler,
		Div2:       req.Div2,
	})
	c.settings.RefFreqMHz = req.RefFreqMHz
	c.settings.RCounter = rc
	c.settings.RefDoubler = req.Doubler
	c.settings.RefDiv2 = req.Div2

	if c.settings.FreqMHz > 0 {
		if err := c.dev.SetFrequency(ctx, c.settings.FreqMHz, c.settings.SpacingMHz); err != nil {
			slog.Warn("controller: frequency unplannable with new reference, clearing",
				"freq_mhz", c.settings.FreqMHz, "err", err)
			c.settings.FreqMHz = 0
		}
	}

	c.persistAndPublish()
	return c.status(), nil
}

// SetOutput applies a partial output-stage update. Values are clamped to
// hardware range; changes latch into the chip on the next retune.
func (c *Controller) SetOutput(ctx context.Context, upd models.OutputUpdate) (models.Status, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if upd.Power != nil {
		c.dev.SetOutputPower(*upd.Power)
		c.settings.Power = clamp(*upd.Power, 0, 3)
	}
	if upd.Enabled != nil {
		c.dev.EnableOutput(*upd.Enabled)
		c.settings.Enabled = *upd.Enabled
	}
	if upd.ChargePump != nil {
		c.dev.SetChargePumpCurrent(*upd.ChargePump)
		c.settings.ChargePump = clamp(*upd.ChargePump, 0, 15)
	}

	c.persistAndPublish()
	return c.status(), nil
}

// Watch re-applies the settings file when another tool edits it. It blocks
// until ctx is cancelled. Stores without a real file path are not watched.
func (c *Controller) Watch(ctx context.Context) error {
	path := c.store.Path()
	if !filepath.IsAbs(path) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("controller: create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic writes replace the file by rename, which
	// would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("controller: watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				c.reload(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("controller: watcher error", "err", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// reload picks up external edits of the settings file. Writes the controller
// made itself load back identical and are ignored.
func (c *Controller) reload(ctx context.Context) {
	settings, err := c.store.Load()
	if err != nil {
		slog.Warn("controller: failed to reload settings", "err", err)
		return
	}
	settings.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()
	if reflect.DeepEqual(*settings, c.settings) {
		return
	}
	slog.Info("controller: settings file changed externally, re-applying")
	c.settings = *settings
	c.applySettings(ctx)
	c.bus.Publish(c.status())
}

// Close flushes any pending settings write.
func (c *Controller) Close() error {
	return c.store.Flush()
}

// persistAndPublish saves the current settings and pushes a status snapshot
// to subscribers. Caller holds c.mu.
func (c *Controller) persistAndPublish() {
	_ = c.store.Save(&c.settings) // debounced, async
	c.bus.Publish(c.status())
}

func planError(err error) *models.AppError {
	switch {
	case errors.Is(err, adf4351.ErrOutOfRange):
		return models.ErrBadRequest(err.Error())
	case errors.Is(err, adf4351.ErrPlanInfeasible):
		return models.ErrUnplannable(err.Error())
	default:
		return models.ErrInternal(err.Error())
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
