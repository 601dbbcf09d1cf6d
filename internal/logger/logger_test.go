package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupWriterJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	log := SetupWriter(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Str("component", "exam_session").Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "visible" || entry["component"] != "exam_session" || entry["service"] != "exstem-portal" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSetupWriterBadLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	SetupWriter(&bytes.Buffer{}, "loud", "json")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info", zerolog.GlobalLevel())
	}
}
