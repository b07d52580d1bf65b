package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(2)
	progress.Step("provider-resolution")
	progress.Step("cache-operations")
	progress.Finish()

	out := buf.String()
	for _, want := range []string{"1/2 provider-resolution", "2/2 cache-operations"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestSimpleProgress_StepBeyondTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf).(*SimpleProgress)

	progress.Start(1)
	progress.Step("a")
	progress.Step("b")
	if progress.current != 1 {
		t.Errorf("current = %d, want 1", progress.current)
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(0)
	progress.Step("x")
	progress.Finish()

	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(3)
	progress.Error(errors.New("stream-parsing failed"))

	if !strings.Contains(buf.String(), "Error: stream-parsing failed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf).(*SimpleProgress)
	progress.Start(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				progress.Step("t")
			}
		}()
	}
	wg.Wait()

	if progress.current != 100 {
		t.Errorf("current = %d, want 100", progress.current)
	}
}
