package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/ipc"
)

func TestParseRect(t *testing.T) {
	tests := []struct {
		in      string
		want    ipc.RectData
		wantErr bool
	}{
		{in: "0,0,1920,1040", want: ipc.RectData{Width: 1920, Height: 1040}},
		{in: " -8, 12 ,800,600", want: ipc.RectData{X: -8, Y: 12, Width: 800, Height: 600}},
		{in: "0,0,1920", wantErr: true},
		{in: "0,0,a,600", wantErr: true},
		{in: "0,0,0,600", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseRect(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseRect(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("parseRect(%q) = %+v, %v", tt.in, got, err)
		}
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceDefault, Name: "builtin"}, "default"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Fatalf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	rect := ipc.RectData{Width: 1920, Height: 1040}
	writeStatus(&buf, &ipc.StatusData{
		InstanceID:  "abc",
		Window:      0x1c00007,
		Placement:   "manual-maximized",
		DesiredMode: "cooperative",
		HeldMode:    "cooperative",
		Bars: []ipc.BarInfo{
			{Edge: "left", Size: 220, Registered: true},
			{Edge: "top", Size: 32},
		},
		LegacyActive: true,
		LegacyRect:   &rect,
	})
	out := buf.String()
	for _, want := range []string{"window:          0x1c00007", "bar left:", "(unregistered)", "work_area:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "retry:") {
		t.Fatalf("idle retry printed:\n%s", out)
	}
}
