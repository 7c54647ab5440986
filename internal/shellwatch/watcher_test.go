package shellwatch

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

func TestRestartedFiltersSignals(t *testing.T) {
	w := New([]string{"org.gnome.Shell"}, func(string) {}, nil)

	tests := []struct {
		name string
		sig  *dbus.Signal
		want bool
	}{
		{"owner appears", &dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{"org.gnome.Shell", "", ":1.42"}}, true},
		{"owner replaced", &dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{"org.gnome.Shell", ":1.40", ":1.42"}}, true},
		{"owner vanishes", &dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{"org.gnome.Shell", ":1.40", ""}}, false},
		{"other name", &dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{"org.kde.plasmashell", "", ":1.9"}}, false},
		{"other signal", &dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired", Body: []interface{}{"org.gnome.Shell"}}, false},
		{"bad body", &dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{1, 2, 3}}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := w.restarted(tt.sig); got != tt.want {
				t.Fatalf("restarted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunWithoutNamesWaitsForCancel(t *testing.T) {
	w := New(nil, func(string) { t.Errorf("unexpected restart") }, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
