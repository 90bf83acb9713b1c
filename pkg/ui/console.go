package ui

import (
	"fmt"
	"io"
	"log/slog"
)

// Console writes UI events to an io.Writer, mirroring the recovery
// console's text output.
type Console struct {
	w io.Writer
}

// NewConsole returns a UI that renders to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SetBackground(icon string) {
	slog.Info("ui_set_background", "icon", icon)
	fmt.Fprintf(c.w, "ui_print Background: %s\n", icon)
}

func (c *Console) ShowProgress(portion float64, seconds int) {
	slog.Info("ui_show_progress", "portion", portion, "seconds", seconds)
	fmt.Fprintf(c.w, "ui_print Progress: %.4f over %ds\n", portion, seconds)
}

func (c *Console) SetProgress(fraction float64) {
	fmt.Fprintf(c.w, "ui_print Progress fraction: %.4f\n", fraction)
}

func (c *Console) Print(text string) {
	fmt.Fprint(c.w, text)
}

func (c *Console) PrintOnScreen(text string) {
	fmt.Fprintf(c.w, "ui_print_on_screen: %s\n", text)
}

func (c *Console) SetEnableReboot(enabled bool) {
	slog.Info("ui_set_enable_reboot", "enabled", enabled)
	fmt.Fprintf(c.w, "ui_print EnableReboot: %v\n", enabled)
}
