package memdiag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRead(t *testing.T) {
	s := Read()
	if s.Sys == 0 {
		t.Error("Sys = 0")
	}
	if s.HeapAlloc == 0 {
		t.Error("HeapAlloc = 0")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "1")
	t.Setenv(EnvPprof, "")
	t.Setenv(EnvPprofAddr, "")
	c := ConfigFromEnv()
	if !c.Enabled || c.PprofEnabled {
		t.Errorf("config = %+v", c)
	}
	if c.PprofAddr != "localhost:6060" {
		t.Errorf("PprofAddr = %q", c.PprofAddr)
	}
}

func TestDisabledTrackerIsSilent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{}, zerolog.New(&buf))
	tr.Start()
	tr.SetPhase("decode")
	tr.SampleWithBudget("decoded", 1, 2)
	tr.Stop()
	if buf.Len() != 0 {
		t.Errorf("disabled tracker logged: %s", buf.String())
	}
	if tr.PeakHeap() != 0 {
		t.Errorf("PeakHeap = %d, want 0", tr.PeakHeap())
	}
}

func TestTrackerSamples(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{Enabled: true}, zerolog.New(&buf))
	tr.Start()
	tr.SetPhase("decode")
	tr.SampleWithBudget("decoded", 128, 1024)
	tr.Stop()
	tr.Stop()

	out := buf.String()
	for _, want := range []string{
		`"phase":"decode"`,
		`"reason":"phase_change"`,
		`"budget_inuse":"128 B"`,
		`"reason":"shutdown"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
	if tr.PeakHeap() == 0 {
		t.Error("PeakHeap = 0 after sampling")
	}
}
