package views

import (
	"syscall"
	"testing"
)

func TestIndexView(t *testing.T) {
	ctx := &Context{CurrentPath: "current", HistoryPath: "history"}
	v := NewIndexView(ctx, nil)

	t.Run("Getattr root", func(t *testing.T) {
		attr, err := v.Getattr("/")
		if err != nil {
			t.Fatalf("Getattr(/) error: %v", err)
		}
		if attr.Mode&syscall.S_IFDIR == 0 {
			t.Errorf("Getattr(/) Mode = %o, want the directory bit set", attr.Mode)
		}
	})

	t.Run("Getattr non-root is ENOENT", func(t *testing.T) {
		if _, err := v.Getattr("/nope"); err != ErrNoEnt {
			t.Errorf("Getattr(/nope) error = %v, want ErrNoEnt", err)
		}
	})

	t.Run("Readdir lists current and history", func(t *testing.T) {
		entries, err := v.Readdir("/")
		if err != nil {
			t.Fatalf("Readdir(/) error: %v", err)
		}
		names := map[string]bool{}
		for _, e := range entries {
			names[e.Name] = true
		}
		for _, want := range []string{".", "..", "current", "history"} {
			if !names[want] {
				t.Errorf("Readdir(/) = %+v, missing %q", entries, want)
			}
		}
	})

	t.Run("Readdir non-root is ENOENT", func(t *testing.T) {
		if _, err := v.Readdir("/nope"); err != ErrNoEnt {
			t.Errorf("Readdir(/nope) error = %v, want ErrNoEnt", err)
		}
	})
}
