package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "WARN", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"production", "loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.env, tt.level); got != tt.want {
			t.Errorf("ParseLevel(%q, %q) = %v, want %v", tt.env, tt.level, got, tt.want)
		}
	}
}

func TestSetupWritesJSONToBuffer(t *testing.T) {
	var out, extra bytes.Buffer
	logger := SetupWithWriter("production", "", &out, &extra)
	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "test").Msg("visible")

	if strings.Contains(extra.String(), "hidden") {
		t.Fatal("debug entry written at info level")
	}
	if !strings.Contains(extra.String(), `"component":"test"`) {
		t.Fatalf("additional writer missing entry: %q", extra.String())
	}
	if !strings.Contains(out.String(), `"message":"visible"`) {
		t.Fatalf("production output should be JSON: %q", out.String())
	}
}
