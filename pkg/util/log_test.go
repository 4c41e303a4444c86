package util

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetVerbose(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	SetVerbose(true)
	if Logger.Level != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", Logger.Level)
	}
	SetVerbose(false)
	if Logger.Level != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", Logger.Level)
	}
}

func TestDefaultLevelHidesInfo(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	SetVerbose(false)

	Infof("hidden %d", 1)
	Debugf("hidden %d", 2)
	if buf.Len() != 0 {
		t.Errorf("expected no output at warn level, got %q", buf.String())
	}

	Warnf("shown %d", 3)
	if !strings.Contains(buf.String(), "shown 3") {
		t.Errorf("warn not logged: %q", buf.String())
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	SetJSONFormat()

	WithDevice("sub-mad01-data01").Warnf("drain %s", "agent")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["device"] != "sub-mad01-data01" {
		t.Errorf("device = %v, want %q", entry["device"], "sub-mad01-data01")
	}
	if entry["msg"] != "drain agent" {
		t.Errorf("msg = %v, want %q", entry["msg"], "drain agent")
	}
}

func TestWithFields(t *testing.T) {
	entry := WithFields(map[string]interface{}{
		"device":    "sub-mad01-data01",
		"operation": "path.announce",
	})
	if entry.Data["device"] != "sub-mad01-data01" {
		t.Errorf("device = %v", entry.Data["device"])
	}
	if entry.Data["operation"] != "path.announce" {
		t.Errorf("operation = %v", entry.Data["operation"])
	}

	if e := WithOperation("peer.drain"); e.Data["operation"] != "peer.drain" {
		t.Errorf("operation = %v", e.Data["operation"])
	}
	if e := WithField("peer", "192.0.2.1"); e.Data["peer"] != "192.0.2.1" {
		t.Errorf("peer = %v", e.Data["peer"])
	}
}
