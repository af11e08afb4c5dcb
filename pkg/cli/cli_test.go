package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"json", FormatJSON, false},
		{"raw", FormatRaw, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutput(t *testing.T) {
	data := map[string]any{"name": "test", "value": 123}

	var js bytes.Buffer
	if err := Output(&js, FormatJSON, data); err != nil {
		t.Fatalf("Output(json) error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", js.String(), err)
	}
	if decoded["name"] != "test" {
		t.Errorf("name = %v, want %q", decoded["name"], "test")
	}

	var y bytes.Buffer
	if err := Output(&y, "", data); err != nil {
		t.Fatalf("Output(yaml) error: %v", err)
	}
	if !strings.Contains(y.String(), "name: test") {
		t.Errorf("yaml output = %q, want name: test", y.String())
	}

	var raw bytes.Buffer
	Output(&raw, FormatRaw, "hello")
	if raw.String() != "hello" {
		t.Errorf("raw output = %q, want %q", raw.String(), "hello")
	}

	if err := Output(&raw, Format("xml"), data); err == nil {
		t.Error("Output(xml) error = nil, want error")
	}
}

func TestLogWriter(t *testing.T) {
	w := NewLogWriter(2)
	w.Write([]byte("one\ntwo\nthr"))
	if got := w.Lines(); strings.Join(got, ",") != "one,two" {
		t.Fatalf("Lines() = %v, want [one two]", got)
	}
	w.Write([]byte("ee\n"))
	if got := w.Lines(); strings.Join(got, ",") != "two,three" {
		t.Errorf("Lines() = %v, want [two three]", got)
	}
}

func TestMeter(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, "░░░░"},
		{0.5, "██░░"},
		{1, "████"},
		{3, "████"},
		{-1, "░░░░"},
	}
	for _, tt := range tests {
		if got := Meter(tt.level, 4); got != tt.want {
			t.Errorf("Meter(%v, 4) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestFrameRender(t *testing.T) {
	f := Frame{
		Styles: NewStyles(DefaultTheme),
		Title:  "parley",
		Status: "ready",
		Sections: []Section{
			{Label: "Conversation", Lines: []string{"a", "b", "c", strings.Repeat("x", 100)}},
		},
		Help: "/quit",
	}
	out := f.Render(40, 8)
	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("rendered %d lines, want 8:\n%s", len(lines), out)
	}
	for i, l := range lines[:len(lines)-1] {
		if w := lipgloss.Width(l); w != 40 {
			t.Errorf("line %d width = %d, want 40: %q", i, w, l)
		}
	}
	if !strings.Contains(out, "…") {
		t.Error("long line not truncated")
	}
	if strings.Contains(out, "│ a") {
		t.Error("oldest line shown although it does not fit")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 3); got != "hél" {
		t.Errorf("truncate = %q, want %q", got, "hél")
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate = %q, want empty", got)
	}
}
