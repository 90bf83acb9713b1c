// Package ui abstracts the operator-facing display surface used during
// install, so the supervisor and driver never depend on a concrete
// terminal implementation.
package ui

// Background icons the install flow switches between.
const (
	BackgroundNone             = "none"
	BackgroundInstallingUpdate = "installing_update"
)

// UI is the capability set a child-protocol dispatcher can drive.
// Implementations must be safe for sequential use by a single caller;
// concurrent use is not required.
type UI interface {
	SetBackground(icon string)
	ShowProgress(portion float64, seconds int)
	SetProgress(fraction float64)
	Print(text string)
	PrintOnScreen(text string)
	SetEnableReboot(enabled bool)
}
