package bus_test

import (
	"context"
	"testing"

	"github.com/sdrworks/synthpi/internal/adf4351"
	"github.com/sdrworks/synthpi/internal/bus"
)

// Compile-time checks: every writer satisfies the device's bus contract.
var (
	_ adf4351.BusWriter = (*bus.Mock)(nil)
	_ adf4351.BusWriter = (*bus.SPIWriter)(nil)
	_ adf4351.BusWriter = (*bus.SerialWriter)(nil)
)

func TestMockRecordsInOrder(t *testing.T) {
	m := bus.NewMock()
	ctx := context.Background()

	words := []uint32{0x00580005, 0x008C803C, 0x000004B3}
	for _, w := range words {
		if err := m.WriteWord(ctx, w); err != nil {
			t.Fatalf("WriteWord(0x%08X): %v", w, err)
		}
	}

	got := m.Words()
	if len(got) != len(words) {
		t.Fatalf("recorded %d words, want %d", len(got), len(words))
	}
	for i := range words {
		if got[i] != words[i] {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, got[i], words[i])
		}
	}
}

func TestMockReset(t *testing.T) {
	m := bus.NewMock()
	_ = m.WriteWord(context.Background(), 0x5)
	m.Reset()
	if n := len(m.Words()); n != 0 {
		t.Errorf("Words() has %d entries after Reset, want 0", n)
	}
}

func TestMockFailWrite(t *testing.T) {
	m := bus.NewMock()
	m.SetFailWrite(true)

	if err := m.WriteWord(context.Background(), 0x5); err == nil {
		t.Fatal("WriteWord should fail when failure is configured")
	}
	if n := len(m.Words()); n != 0 {
		t.Errorf("failed write recorded %d words", n)
	}

	m.SetFailWrite(false)
	if err := m.WriteWord(context.Background(), 0x5); err != nil {
		t.Fatalf("WriteWord after clearing failure: %v", err)
	}
}

func TestMockCancelledContext(t *testing.T) {
	m := bus.NewMock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.WriteWord(ctx, 0x5); err == nil {
		t.Fatal("WriteWord with cancelled context should fail")
	}
}
