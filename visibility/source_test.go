package visibility

import (
	"context"
	"testing"
	"time"
)

func TestBind_ManualSource(t *testing.T) {
	src := NewManualSource()
	sig := NewSignal(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Bind(ctx, src, sig) }()

	waitFor(t, func() bool { return src.Watchers() == 1 })

	src.Report(true)
	if !sig.Active() {
		t.Error("signal should be active after Report(true)")
	}
	src.Report(false)
	if sig.Active() {
		t.Error("signal should be inactive after Report(false)")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Bind() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Bind did not return after cancel")
	}
	if src.Watchers() != 0 {
		t.Errorf("Watchers() after cancel = %d, want 0", src.Watchers())
	}
}

func TestBind_NilSignal(t *testing.T) {
	if err := Bind(context.Background(), NewManualSource(), nil); err != ErrNilSignal {
		t.Errorf("Bind(nil) = %v, want ErrNilSignal", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
