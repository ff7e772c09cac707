package config_test

import (
	"os"
	"testing"

	"github.com/sdrworks/synthpi/internal/config"
	"github.com/sdrworks/synthpi/internal/models"
)

func TestJSONStoreLoadDefaults(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	settings, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := models.DefaultSettings()
	if *settings != def {
		t.Errorf("Load from empty dir = %+v, want defaults %+v", *settings, def)
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	settings := models.DefaultSettings()
	settings.FreqMHz = 433.92
	settings.RefFreqMHz = 10
	settings.RefDoubler = true
	settings.Power = 1

	if err := store.Save(&settings); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Saves are debounced; Flush forces the write.
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != settings {
		t.Errorf("round trip = %+v, want %+v", *loaded, settings)
	}
}

func TestJSONStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	settings, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := models.DefaultSettings()
	if *settings != def {
		t.Errorf("corrupt file load = %+v, want defaults", *settings)
	}
}

func TestJSONStoreNormalizesOnLoad(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	// Hand-edited file with out-of-range values.
	data := []byte(`{"ref_freq_mhz": 25, "r_counter": 0, "spacing_mhz": 0, "power": 9, "charge_pump": -3}`)
	if err := os.WriteFile(store.Path(), data, 0644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	settings, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.RCounter != 1 {
		t.Errorf("RCounter = %d, want defaulted to 1", settings.RCounter)
	}
	if settings.SpacingMHz != 0.01 {
		t.Errorf("SpacingMHz = %v, want defaulted to 0.01", settings.SpacingMHz)
	}
	if settings.Power != 3 {
		t.Errorf("Power = %d, want clamped to 3", settings.Power)
	}
	if settings.ChargePump != 0 {
		t.Errorf("ChargePump = %d, want clamped to 0", settings.ChargePump)
	}
}

func TestMemStore(t *testing.T) {
	store := config.NewMemStore()

	settings, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := models.DefaultSettings()
	if *settings != def {
		t.Errorf("empty mem store load = %+v, want defaults", *settings)
	}

	settings.FreqMHz = 1296
	if err := store.Save(settings); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's copy must not affect the stored settings.
	settings.FreqMHz = 0

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FreqMHz != 1296 {
		t.Errorf("FreqMHz = %v, want 1296", loaded.FreqMHz)
	}

	if store.Path() != ":memory:" {
		t.Errorf("Path() = %q, want %q", store.Path(), ":memory:")
	}
	if err := store.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
}
