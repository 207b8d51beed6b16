package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"feedmirror/internal/logging"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	scoped := logging.NewComponentLogger(logger, "scheduler")
	scoped.Info("post released",
		logging.Int64(logging.FieldPostID, 42),
		logging.String("note", "has space"),
	)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO scheduler: post released") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "post_id=42") {
		t.Fatalf("missing attribute in line: %q", line)
	}
	if !strings.Contains(line, `note="has space"`) {
		t.Fatalf("values with spaces should be quoted: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("too quiet to appear")
	logger.Warn("loud enough")

	out := buf.String()
	if strings.Contains(out, "too quiet") {
		t.Fatalf("info record leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "loud enough") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestJSONHandlerEmitsParseableRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("event happened", logging.Int("count", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("json output did not parse: %v (%q)", err, buf.String())
	}
	if record["msg"] != "event happened" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v, want lowercase info", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("timestamp key ts missing")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
