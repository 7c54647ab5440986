package hotkeys

import (
	"testing"

	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/platform/platformtest"
)

func TestInstallOnlyInShellMode(t *testing.T) {
	fake := platformtest.New(1920, 1080)
	in := NewIntercept(Config{}, fake, fake, func() platform.WindowID { return 0 })

	if err := in.Install(false); err != nil {
		t.Fatalf("Install(false): %v", err)
	}
	if fake.Installed != 0 {
		t.Fatalf("filter installed outside shell mode")
	}

	for range 3 {
		if err := in.Install(true); err != nil {
			t.Fatalf("Install(true): %v", err)
		}
	}
	if fake.Installed != 1 {
		t.Fatalf("installs = %d, want 1", fake.Installed)
	}
	if fake.Chord != DefaultChord {
		t.Fatalf("chord = %q, want %q", fake.Chord, DefaultChord)
	}
}

func TestChordRestoresMinimizedWindow(t *testing.T) {
	fake := platformtest.New(1920, 1080)
	fake.AddWindow(9, platform.Rect{Width: 800, Height: 600})
	fake.Windows[9].State = platform.WindowMinimized

	var posted int
	in := NewIntercept(Config{Post: func(fn func()) { posted++; fn() }}, fake, fake, func() platform.WindowID { return 9 })
	if err := in.Install(true); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if !fake.PressChord() {
		t.Fatalf("chord was not swallowed")
	}

	w := fake.Windows[9]
	if !w.Front || w.State != platform.WindowNormal {
		t.Fatalf("window = %+v, want restored and in front", w)
	}
	if posted != 1 || in.Presses() != 1 {
		t.Fatalf("posted = %d presses = %d", posted, in.Presses())
	}
}

func TestRemoveOnce(t *testing.T) {
	fake := platformtest.New(1920, 1080)
	in := NewIntercept(Config{}, fake, fake, func() platform.WindowID { return 0 })
	_ = in.Install(true)

	if err := in.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := in.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if fake.Removed != 1 {
		t.Fatalf("removals = %d, want 1", fake.Removed)
	}
	if fake.PressChord() {
		t.Fatalf("chord still swallowed after removal")
	}
}

func TestInvalidChordIsRejected(t *testing.T) {
	fake := platformtest.New(1920, 1080)
	in := NewIntercept(Config{Chord: "d"}, fake, fake, func() platform.WindowID { return 0 })

	if err := in.Install(true); err == nil {
		t.Fatalf("expected error for chord without modifier")
	}
	if in.Active() {
		t.Fatalf("intercept active after failed install")
	}
}

func TestReconfigureSwapsChord(t *testing.T) {
	fake := platformtest.New(1920, 1080)
	in := NewIntercept(Config{}, fake, fake, func() platform.WindowID { return 0 })
	_ = in.Install(true)

	if err := in.Reconfigure("Control-Mod1-d", true); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if fake.Chord != "Control-Mod1-d" || fake.Installed != 2 || fake.Removed != 1 {
		t.Fatalf("chord=%q installs=%d removals=%d", fake.Chord, fake.Installed, fake.Removed)
	}

	if err := in.Reconfigure("Control-Mod1-d", false); err != nil {
		t.Fatalf("Reconfigure off: %v", err)
	}
	if in.Active() {
		t.Fatalf("intercept active outside shell mode")
	}
}
