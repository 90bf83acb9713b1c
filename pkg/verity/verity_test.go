package verity

import (
	"context"
	"errors"
	"testing"
)

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		corrupt bool
	}{
		{"valid verity target", "0 4194304 verity V", false},
		{"corrupt verity target", "0 4194304 verity C", true},
		{"non-verity target", "0 2097152 thin 253:0 1", false},
		{"empty line", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseStatusLine(tt.line)
			if tt.corrupt && !errors.Is(err, ErrCorruptionDetected) {
				t.Errorf("got %v, want ErrCorruptionDetected", err)
			}
			if !tt.corrupt && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckTarget_MissingDmsetupIsTolerated(t *testing.T) {
	c := &DMChecker{dmsetupPath: "/does/not/exist/dmsetup"}
	if err := c.CheckTarget(context.Background(), "/dev/whatever"); err != nil {
		t.Errorf("missing dmsetup should be advisory, got %v", err)
	}
}
