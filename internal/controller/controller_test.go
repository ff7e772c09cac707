package controller_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/sdrworks/synthpi/internal/adf4351"
	"github.com/sdrworks/synthpi/internal/bus"
	"github.com/sdrworks/synthpi/internal/config"
	"github.com/sdrworks/synthpi/internal/controller"
	"github.com/sdrworks/synthpi/internal/events"
	"github.com/sdrworks/synthpi/internal/models"
)

func newTestController(t *testing.T) (*controller.Controller, *bus.Mock, *config.MemStore, *events.Bus) {
	t.Helper()
	m := bus.NewMock()
	store := config.NewMemStore()
	evBus := events.NewBus()
	ctrl, err := controller.New(adf4351.NewDevice(m), store, evBus)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	return ctrl, m, store, evBus
}

func TestControllerDefaults(t *testing.T) {
	ctrl, m, _, _ := newTestController(t)

	st := ctrl.Status()
	if st.RefFreqMHz != 25 || st.PFDFreqMHz != 25 {
		t.Errorf("ref/pfd = %v/%v, want 25/25", st.RefFreqMHz, st.PFDFreqMHz)
	}
	if st.Programmed || st.Plan != nil {
		t.Error("fresh controller should have no programmed frequency")
	}
	if n := len(m.Words()); n != 0 {
		t.Errorf("fresh controller wrote %d words", n)
	}
}

func TestControllerSetFrequency(t *testing.T) {
	ctrl, m, store, evBus := newTestController(t)
	ch := evBus.Subscribe("test")
	defer evBus.Unsubscribe("test")

	st, appErr := ctrl.SetFrequency(context.Background(), models.FrequencyRequest{FreqMHz: 2400})
	if appErr != nil {
		t.Fatalf("SetFrequency: %v", appErr)
	}
	if !st.Programmed || st.FreqMHz != 2400 {
		t.Errorf("status = programmed %v freq %v, want programmed 2400", st.Programmed, st.FreqMHz)
	}
	if st.Plan == nil || st.Plan.NInt != 96 || !st.Plan.IntegerN {
		t.Errorf("plan = %+v, want integer-N with N_int 96", st.Plan)
	}
	if len(st.Registers) != 6 {
		t.Errorf("status carries %d register words, want 6", len(st.Registers))
	}
	if n := len(m.Words()); n != 6 {
		t.Errorf("wrote %d words, want 6", n)
	}

	// Persisted
	saved, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	if saved.FreqMHz != 2400 {
		t.Errorf("persisted freq = %v, want 2400", saved.FreqMHz)
	}

	// Published
	select {
	case ev := <-ch:
		if ev.FreqMHz != 2400 {
			t.Errorf("event freq = %v, want 2400", ev.FreqMHz)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("no event published after retune")
	}
}

func TestControllerSetFrequencyOutOfRange(t *testing.T) {
	ctrl, m, store, _ := newTestController(t)

	_, appErr := ctrl.SetFrequency(context.Background(), models.FrequencyRequest{FreqMHz: 34})
	if appErr == nil {
		t.Fatal("SetFrequency(34) should fail")
	}
	if appErr.Status != 400 {
		t.Errorf("status = %d, want 400", appErr.Status)
	}
	if n := len(m.Words()); n != 0 {
		t.Errorf("failed retune wrote %d words", n)
	}
	saved, _ := store.Load()
	if saved.FreqMHz != 0 {
		t.Errorf("failed retune persisted freq %v", saved.FreqMHz)
	}
}

func TestControllerSetReferenceRetunes(t *testing.T) {
	ctrl, m, _, _ := newTestController(t)
	ctx := context.Background()

	if _, appErr := ctrl.SetFrequency(ctx, models.FrequencyRequest{FreqMHz: 1296}); appErr != nil {
		t.Fatalf("SetFrequency: %v", appErr)
	}
	m.Reset()

	st, appErr := ctrl.SetReference(ctx, models.ReferenceRequest{RefFreqMHz: 50, RCounter: 2})
	if appErr != nil {
		t.Fatalf("SetReference: %v", appErr)
	}
	if st.PFDFreqMHz != 25 {
		t.Errorf("PFD = %v, want 25", st.PFDFreqMHz)
	}
	if !st.Programmed || st.FreqMHz != 1296 {
		t.Errorf("frequency not re-programmed after reference change: %+v", st.Settings)
	}
	if n := len(m.Words()); n != 6 {
		t.Errorf("reference change re-wrote %d words, want 6", n)
	}
}

func TestControllerSetReferenceRejectsZero(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)

	_, appErr := ctrl.SetReference(context.Background(), models.ReferenceRequest{RefFreqMHz: 0})
	if appErr == nil || appErr.Status != 400 {
		t.Fatalf("SetReference(0) = %v, want 400", appErr)
	}
}

func TestControllerSetOutputClamps(t *testing.T) {
	ctrl, m, _, _ := newTestController(t)

	power := 9
	enabled := false
	cp := -4
	st, appErr := ctrl.SetOutput(context.Background(), models.OutputUpdate{
		Power:      &power,
		Enabled:    &enabled,
		ChargePump: &cp,
	})
	if appErr != nil {
		t.Fatalf("SetOutput: %v", appErr)
	}
	if st.Power != 3 || st.Enabled || st.ChargePump != 0 {
		t.Errorf("settings = power %d enabled %v cp %d, want 3 false 0", st.Power, st.Enabled, st.ChargePump)
	}
	// Output changes latch on the next retune, not immediately.
	if n := len(m.Words()); n != 0 {
		t.Errorf("output update wrote %d words", n)
	}
}

func TestControllerStartupAppliesStoredFrequency(t *testing.T) {
	store := config.NewMemStore()
	settings := models.DefaultSettings()
	settings.FreqMHz = 433.92
	if err := store.Save(&settings); err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	m := bus.NewMock()
	dev := adf4351.NewDevice(m)
	ctrl, err := controller.New(dev, store, events.NewBus())
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}

	if got := dev.Frequency(); got != 433.92 {
		t.Errorf("device frequency after startup = %v, want 433.92", got)
	}
	if n := len(m.Words()); n != 6 {
		t.Errorf("startup wrote %d words, want 6", n)
	}
	if st := ctrl.Status(); !st.Programmed {
		t.Error("status not programmed after startup retune")
	}
}

func TestControllerWatchAppliesExternalEdit(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	m := bus.NewMock()
	ctrl, err := controller.New(adf4351.NewDevice(m), store, events.NewBus())
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := ctrl.Watch(ctx); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	time.Sleep(50 * time.Millisecond) // let the watcher arm

	edited := models.DefaultSettings()
	edited.FreqMHz = 915
	data, err := json.MarshalIndent(edited, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(store.Path(), data, 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		if st := ctrl.Status(); st.FreqMHz == 915 && st.Programmed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("external settings edit was not applied")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
