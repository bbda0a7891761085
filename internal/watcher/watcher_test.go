package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, path string, onChange func(string) error) *Watcher {
	t.Helper()
	w := NewWatcher(path, onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	var calls atomic.Int32
	startWatcher(t, path, func(p string) error {
		if p != path {
			t.Errorf("onChange path = %s, want %s", p, path)
		}
		calls.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange calls = %d, want 1", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, filepath.Join(dir, "index.bin"), func(string) error {
		calls.Add(1)
		return nil
	})

	if err := os.WriteFile(filepath.Join(dir, "other.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange calls = %d, want 0", got)
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	startWatcher(t, path, func(string) error {
		calls.Add(1)
		return nil
	})

	tmp := filepath.Join(dir, ".index.bin.tmp")
	if err := os.WriteFile(tmp, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
}

func TestWatcher_KeepsRunningAfterFailedReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	var calls atomic.Int32
	startWatcher(t, path, func(string) error {
		calls.Add(1)
		return errors.New("corrupt artifact")
	})

	if err := os.WriteFile(path, []byte("bad"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 1 })
	if err := os.WriteFile(path, []byte("bad again"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 2 })
}

func TestWatcher_CreatesParentAndStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.bin")
	w := NewWatcher(path, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent directory not created: %v", err)
	}
	if w.Path() != path {
		t.Errorf("Path() = %s, want %s", w.Path(), path)
	}
	w.Stop()
	w.Stop()
}
