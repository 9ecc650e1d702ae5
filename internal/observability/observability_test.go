package observability

import (
	"log/slog"
	"testing"
)

func TestInstrument(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		format  string
		wantErr bool
	}{
		{"", false},
		{FormatText, false},
		{FormatJSON, false},
		{"syslog", true},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			err := Instrument(slog.LevelInfo, tt.format)
			if tt.wantErr && err == nil {
				t.Errorf("Instrument(%q) succeeded, want error", tt.format)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Instrument(%q) unexpected error: %v", tt.format, err)
			}
		})
	}
}

func TestDefaultFormatIsSupported(t *testing.T) {
	switch got := DefaultFormat(); got {
	case FormatText, FormatJSON:
	default:
		t.Errorf("DefaultFormat() = %q, want text or json", got)
	}
}

func TestSeverity(t *testing.T) {
	levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	for i := 1; i < len(levels); i++ {
		lo, hi := severity(levels[i-1]), severity(levels[i])
		if lo >= hi {
			t.Errorf("severity(%v) = %v, not below severity(%v) = %v", levels[i-1], lo, levels[i], hi)
		}
	}

	if severity(slog.LevelError+4) != severity(slog.LevelError) {
		t.Error("levels above error should map to the error filter")
	}
	if severity(slog.LevelDebug-4) != severity(slog.LevelDebug) {
		t.Error("levels below debug should map to the debug filter")
	}
}
