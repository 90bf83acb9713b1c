package supervisor

import (
	"context"
	"testing"

	"github.com/otacore/recovery/pkg/installlog"
	"github.com/otacore/recovery/pkg/ui"
)

func runScript(t *testing.T, script string) (Result, *ui.Recording, *installlog.Buffer) {
	t.Helper()
	surface := ui.NewRecording()
	var logBuf installlog.Buffer
	res, err := Run(context.Background(), []string{"/bin/sh", "-c", script}, surface, &logBuf)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res, surface, &logBuf
}

func TestRun_HappyPath(t *testing.T) {
	script := `
echo "progress 0.5 10" >&3
echo "ui_print hi" >&3
echo "set_progress 1.0" >&3
exit 0
`
	res, surface, _ := runScript(t, script)

	if res.Status != StatusSuccess {
		t.Fatalf("status: got %v, want success", res.Status)
	}
	if res.WipeCache {
		t.Error("wipe_cache should be false")
	}

	if len(surface.Events) != 3 {
		t.Fatalf("got %d UI events, want 3: %+v", len(surface.Events), surface.Events)
	}
	if surface.Events[0].Method != "ShowProgress" {
		t.Errorf("event 0: got %s, want ShowProgress", surface.Events[0].Method)
	}
	wantPortion := 0.5 * (1 - VerificationProgressFraction)
	if surface.Events[0].Portion != wantPortion || surface.Events[0].Seconds != 10 {
		t.Errorf("progress scaling: got (%v, %d), want (%v, 10)",
			surface.Events[0].Portion, surface.Events[0].Seconds, wantPortion)
	}
	if surface.Events[1].Method != "PrintOnScreen" || surface.Events[1].Text != "hi" {
		t.Errorf("event 1: got %+v", surface.Events[1])
	}
	if surface.Events[2].Method != "SetProgress" || surface.Events[2].Portion != 1.0 {
		t.Errorf("event 2: got %+v", surface.Events[2])
	}
}

func TestRun_RetryOverridesExitCode(t *testing.T) {
	res, _, _ := runScript(t, `echo "retry_update" >&3; exit 0`)
	if res.Status != StatusRetry {
		t.Errorf("status: got %v, want retry", res.Status)
	}

	res, _, _ = runScript(t, `echo "retry_update" >&3; exit 7`)
	if res.Status != StatusRetry {
		t.Errorf("status with non-zero exit: got %v, want retry", res.Status)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	res, _, _ := runScript(t, `echo "ui_print almost" >&3; exit 1`)
	if res.Status != StatusError {
		t.Errorf("status: got %v, want error", res.Status)
	}
}

func TestRun_WipeCacheAndLog(t *testing.T) {
	script := `
echo "wipe_cache" >&3
echo "log step one done" >&3
echo "clear_display" >&3
echo "enable_reboot" >&3
exit 0
`
	res, surface, logBuf := runScript(t, script)

	if res.Status != StatusSuccess {
		t.Fatalf("status: got %v, want success", res.Status)
	}
	if !res.WipeCache {
		t.Error("wipe_cache should be true")
	}

	lines := logBuf.Lines()
	if len(lines) != 1 || lines[0] != "step one done" {
		t.Errorf("log buffer: got %q", lines)
	}

	var sawClear, sawReboot bool
	for _, e := range surface.Events {
		if e.Method == "SetBackground" && e.Icon == ui.BackgroundNone {
			sawClear = true
		}
		if e.Method == "SetEnableReboot" && e.Enabled {
			sawReboot = true
		}
	}
	if !sawClear || !sawReboot {
		t.Errorf("missing clear_display/enable_reboot effects: %+v", surface.Events)
	}
}

func TestRun_MalformedAndUnknownLinesAreSkipped(t *testing.T) {
	script := `
echo "progress" >&3
echo "set_progress" >&3
echo "progress abc def" >&3
echo "frobnicate 1 2 3" >&3
echo "ui_print survived" >&3
exit 0
`
	res, surface, _ := runScript(t, script)

	if res.Status != StatusSuccess {
		t.Fatalf("status: got %v, want success", res.Status)
	}
	if len(surface.Events) != 1 || surface.Events[0].Text != "survived" {
		t.Errorf("only the valid ui_print should apply: %+v", surface.Events)
	}
}

func TestRun_EmptyUIPrintIsNewline(t *testing.T) {
	_, surface, _ := runScript(t, `echo "ui_print" >&3; exit 0`)
	if len(surface.Events) != 1 || surface.Events[0].Text != "\n" {
		t.Errorf("empty ui_print: got %+v", surface.Events)
	}
}

func TestRun_StartFailure(t *testing.T) {
	surface := ui.NewRecording()
	var logBuf installlog.Buffer
	res, err := Run(context.Background(), []string{"/does/not/exist"}, surface, &logBuf)
	if err == nil {
		t.Fatal("expected error for unlaunchable applier")
	}
	if res.Status != StatusError {
		t.Errorf("status: got %v, want error", res.Status)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		kind commandKind
	}{
		{"progress 0.5 10", cmdProgress},
		{"progress 0.5", cmdMalformed},
		{"set_progress 0.3", cmdSetProgress},
		{"set_progress", cmdMalformed},
		{"ui_print  two spaces", cmdUIPrint},
		{"wipe_cache", cmdWipeCache},
		{"clear_display", cmdClearDisplay},
		{"enable_reboot", cmdEnableReboot},
		{"retry_update", cmdRetryUpdate},
		{"log something", cmdLog},
		{"log", cmdMalformed},
		{"nonsense", cmdUnknown},
		{"", cmdMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c := parseLine(tt.line)
			if c.kind != tt.kind {
				t.Errorf("parseLine(%q): got kind %d, want %d", tt.line, c.kind, tt.kind)
			}
		})
	}

	c := parseLine("ui_print  leading space kept")
	if c.text != " leading space kept" {
		t.Errorf("rest-of-line: got %q", c.text)
	}
}
