package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" warn ", logrus.WarnLevel},
		{"", logrus.InfoLevel},
		{"chatty", logrus.InfoLevel},
	}
	for _, tt := range tests {
		if got := New(&bytes.Buffer{}, tt.in).GetLevel(); got != tt.want {
			t.Errorf("New(%q): level %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	log.WithField("bubble", 7).Info("traced")
	out := buf.String()
	if !strings.Contains(out, "bubble=7") || !strings.Contains(out, "traced") {
		t.Errorf("unexpected log line: %q", out)
	}
}
