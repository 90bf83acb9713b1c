package ui

import "testing"

func TestRecording_CapturesCallsInOrder(t *testing.T) {
	r := NewRecording()
	r.SetBackground("installing")
	r.ShowProgress(0.25, 60)
	r.SetProgress(0.5)
	r.Print("hello\n")
	r.PrintOnScreen("Installing update...")
	r.SetEnableReboot(true)

	if len(r.Events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(r.Events))
	}
	if r.Events[0].Method != "SetBackground" || r.Events[0].Icon != "installing" {
		t.Errorf("unexpected first event: %+v", r.Events[0])
	}
	if r.Events[1].Portion != 0.25 || r.Events[1].Seconds != 60 {
		t.Errorf("unexpected progress event: %+v", r.Events[1])
	}
	if !r.Events[5].Enabled {
		t.Errorf("expected enable reboot to be true")
	}
}
