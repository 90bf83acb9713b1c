package ui

// Event records a single call made against a Recording UI, for test
// assertions that care about ordering and arguments.
type Event struct {
	Method  string
	Icon    string
	Portion float64
	Seconds int
	Text    string
	Enabled bool
}

// Recording is a UI that appends every call to Events instead of
// rendering anything, for use in tests.
type Recording struct {
	Events []Event
}

// NewRecording returns an empty Recording UI.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) SetBackground(icon string) {
	r.Events = append(r.Events, Event{Method: "SetBackground", Icon: icon})
}

func (r *Recording) ShowProgress(portion float64, seconds int) {
	r.Events = append(r.Events, Event{Method: "ShowProgress", Portion: portion, Seconds: seconds})
}

func (r *Recording) SetProgress(fraction float64) {
	r.Events = append(r.Events, Event{Method: "SetProgress", Portion: fraction})
}

func (r *Recording) Print(text string) {
	r.Events = append(r.Events, Event{Method: "Print", Text: text})
}

func (r *Recording) PrintOnScreen(text string) {
	r.Events = append(r.Events, Event{Method: "PrintOnScreen", Text: text})
}

func (r *Recording) SetEnableReboot(enabled bool) {
	r.Events = append(r.Events, Event{Method: "SetEnableReboot", Enabled: enabled})
}
