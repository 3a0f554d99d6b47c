package logging

import (
	"bytes"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

func TestHelpersWriteToLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	L.SetLevel(clog.DebugLevel)
	defer func() { L = prev }()

	Debugf("index %s", "1.5")
	Infof("deposit %d", 7)
	Warnf("limit")
	Errorf("custody %v", "down")

	out := buf.String()
	for _, want := range []string{"index 1.5", "deposit 7", "limit", "custody down"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q; got: %s", want, out)
		}
	}
}

func TestSetupLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	defer func() { L = prev }()

	if err := Setup("warn", "json"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	Infof("hidden")
	Warnf("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected json output; got: %s", out)
	}

	if err := Setup("loud", "text"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := Setup("info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
