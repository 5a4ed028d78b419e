package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{" WARN ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_LevelIsApplied(t *testing.T) {
	for _, json := range []bool{false, true} {
		logger, err := New(Config{Level: "warn", JSON: json})
		if err != nil {
			t.Fatalf("New(json=%v): %v", json, err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Errorf("json=%v: info should be disabled at warn", json)
		}
		if !logger.Core().Enabled(zapcore.ErrorLevel) {
			t.Errorf("json=%v: error should be enabled at warn", json)
		}
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
