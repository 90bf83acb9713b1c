package bootctrl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeBootctl writes a shell script standing in for the bootctl helper.
func fakeBootctl(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootctl")
	content := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCurrentSlot(t *testing.T) {
	bin := fakeBootctl(t, `[ "$1" = "get-current-slot" ] && echo 1 && exit 0; exit 2`)
	c := NewExecClient(bin)

	slot, err := c.CurrentSlot(context.Background())
	if err != nil {
		t.Fatalf("CurrentSlot failed: %v", err)
	}
	if slot != 1 {
		t.Errorf("slot: got %d, want 1", slot)
	}
}

func TestCurrentSlot_Unavailable(t *testing.T) {
	c := NewExecClient("/does/not/exist/bootctl")
	if _, err := c.CurrentSlot(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestIsSlotMarkedSuccessful(t *testing.T) {
	tests := []struct {
		name string
		exit int
		want SlotResult
	}{
		{"marked", 0, ResultTrue},
		{"not marked", 1, ResultFalse},
		{"invalid", 3, ResultInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakeBootctl(t, fmt.Sprintf("exit %d", tt.exit))
			c := NewExecClient(bin)

			got, err := c.IsSlotMarkedSuccessful(context.Background(), 0)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkBootSuccessful(t *testing.T) {
	c := NewExecClient(fakeBootctl(t, "exit 0"))
	ok, msg, err := c.MarkBootSuccessful(context.Background())
	if err != nil || !ok || msg != "" {
		t.Errorf("got ok=%v msg=%q err=%v, want clean success", ok, msg, err)
	}

	c = NewExecClient(fakeBootctl(t, `echo "mark rejected"; exit 1`))
	ok, msg, err = c.MarkBootSuccessful(context.Background())
	if err != nil {
		t.Fatalf("rejection should not be a transport error: %v", err)
	}
	if ok || msg != "mark rejected" {
		t.Errorf("got ok=%v msg=%q, want rejection with message", ok, msg)
	}
}
