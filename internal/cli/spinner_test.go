package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndStops(t *testing.T) {
	var out syncBuffer
	s := newSpinnerWithContext(context.Background(), "Rendering 2024-01-02 (Daily)...")
	s.out = &out
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.SetMessage("Laying out...")
	time.Sleep(2 * spinnerInterval)
	s.Stop()
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "Rendering 2024-01-02") || !strings.Contains(got, "Laying out") {
		t.Errorf("output %q missing messages", got)
	}
	if s.Cancelled() {
		t.Error("Stop should not mark the spinner cancelled")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) }},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			s := newSpinnerWithContext(ctx, "x")
			s.out = &syncBuffer{}
			s.Start()
			if tt.name == "cancel" {
				cancel()
			}
			time.Sleep(60 * time.Millisecond)
			defer cancel()
			if !s.Cancelled() {
				t.Error("want Cancelled after context end")
			}
			s.Stop()
		})
	}
}
