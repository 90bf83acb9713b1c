package bootctrl

import "context"

// Fake is an in-memory BootControl for tests.
type Fake struct {
	Slot        uint32
	SlotErr     error
	Successful  SlotResult
	QueryErr    error
	MarkOK      bool
	MarkMsg     string
	MarkErr     error
	MarkedCalls int
}

func (f *Fake) CurrentSlot(ctx context.Context) (uint32, error) {
	return f.Slot, f.SlotErr
}

func (f *Fake) IsSlotMarkedSuccessful(ctx context.Context, slot uint32) (SlotResult, error) {
	return f.Successful, f.QueryErr
}

func (f *Fake) MarkBootSuccessful(ctx context.Context) (bool, string, error) {
	f.MarkedCalls++
	return f.MarkOK, f.MarkMsg, f.MarkErr
}
