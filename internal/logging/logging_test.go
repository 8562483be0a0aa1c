package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestWithWorkerAddsWorkerField(t *testing.T) {
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	WithWorker(3).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["worker"] != float64(3) {
		t.Fatalf("expected worker field 3, got %v", line["worker"])
	}
	if line["message"] != "hello" {
		t.Fatalf("expected message field, got %v", line["message"])
	}
}

func TestInitDoesNotPanicWithoutFilePath(t *testing.T) {
	Init(DefaultOptions())
}
