package progress

import (
	"bytes"
	"testing"
)

func TestLineReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{Out: &buf}
	r.Start(2)
	r.Update(1, "_lang-go.xml")
	r.Update(2, "_theme-github.xml")
	r.Finish()

	want := "Syncing 2 assets\n[1/2] _lang-go.xml\n[2/2] _theme-github.xml\nSync complete\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestNewReporterUnderCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("sync").(*LineReporter); !ok {
		t.Error("expected a LineReporter under CI")
	}
}
