package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/parley/cmd/parley/internal/config"
	"github.com/haivivi/parley/pkg/conversation"
	"github.com/haivivi/parley/pkg/tools"
	"github.com/haivivi/parley/pkg/usagelog"
	"github.com/haivivi/parley/pkg/voicesession"
)

func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("parley %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	out := mustRun(t, "version")
	if !strings.Contains(out, "parley") {
		t.Fatalf("expected 'parley', got: %s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	setupTestEnv(t)

	out := mustRun(t, "version", "--format", "json")
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("expected JSON, got: %s", out)
	}
	if info["version"] == "" || info["go"] == "" {
		t.Errorf("info = %v", info)
	}

	if _, err := runCmd(t, "version", "--format", "xml"); err == nil {
		t.Error("version --format xml: want error")
	}
}

func TestConfigContexts(t *testing.T) {
	setupTestEnv(t)

	if out := mustRun(t, "config", "list-contexts"); !strings.Contains(out, "No contexts") {
		t.Errorf("empty list = %q", out)
	}
	mustRun(t, "config", "add-context", "home")
	mustRun(t, "config", "add-context", "office")
	if _, err := runCmd(t, "config", "add-context", "home"); err == nil {
		t.Error("duplicate add-context: want error")
	}
	mustRun(t, "config", "use-context", "office")

	if out := mustRun(t, "config", "current-context"); strings.TrimSpace(out) != "office" {
		t.Errorf("current-context = %q, want office", out)
	}
	var marked bool
	for _, line := range strings.Split(mustRun(t, "config", "ls"), "\n") {
		if f := strings.Fields(line); len(f) >= 2 && f[0] == "*" && f[1] == "office" {
			marked = true
		}
	}
	if !marked {
		t.Error("office not marked current in list-contexts")
	}

	mustRun(t, "config", "delete-context", "office")
	if out := mustRun(t, "config", "current-context"); !strings.Contains(out, "No current context") {
		t.Errorf("current-context after delete = %q", out)
	}
}

func TestConfigSetGet(t *testing.T) {
	setupTestEnv(t)
	mustRun(t, "config", "add-context", "home")
	mustRun(t, "config", "use-context", "home")

	mustRun(t, "config", "set", "home", "realtime", "voice", "verse")
	mustRun(t, "config", "set", "home", "realtime", "vad.silence_duration_ms", "700")
	mustRun(t, "config", "set", "home", "realtime", "quiet_tools", "[checkTimer]")
	mustRun(t, "config", "set", "home", "realtime", "api_key", "sk-abcdefghijkl")

	if out := mustRun(t, "config", "get", "home", "realtime", "voice"); strings.TrimSpace(out) != "verse" {
		t.Errorf("get voice = %q, want verse", out)
	}
	if out := mustRun(t, "config", "get", "home", "realtime", "vad.silence_duration_ms"); strings.TrimSpace(out) != "700" {
		t.Errorf("get vad.silence_duration_ms = %q, want 700", out)
	}
	if _, err := runCmd(t, "config", "get", "home", "realtime", "missing"); err == nil {
		t.Error("get missing key: want error")
	}

	tests := []struct {
		name string
		args []string
	}{
		{"bad transport", []string{"transport", "smoke-signals"}},
		{"bad duration", []string{"settle_delay", "later"}},
		{"unknown key", []string{"vocie", "verse"}},
		{"scalar parent", []string{"voice.name", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"config", "set", "home", "realtime"}, tt.args...)
			if _, err := runCmd(t, args...); err == nil {
				t.Errorf("set %v: want error", tt.args)
			}
		})
	}

	rt, err := loadRealtime()
	if err != nil {
		t.Fatalf("loadRealtime: %v", err)
	}
	if rt.Voice != "verse" || rt.VAD == nil || rt.VAD.SilenceDurationMs != 700 {
		t.Errorf("realtime = %+v", rt)
	}

	out := mustRun(t, "config", "show")
	if strings.Contains(out, "sk-abcdefghijkl") || !strings.Contains(out, "sk-a****ijkl") {
		t.Errorf("show did not mask api_key:\n%s", out)
	}
}

func TestContextFlag(t *testing.T) {
	setupTestEnv(t)
	mustRun(t, "config", "add-context", "home")
	mustRun(t, "config", "add-context", "office")
	mustRun(t, "config", "use-context", "home")
	mustRun(t, "config", "set", "office", "realtime", "voice", "coral")

	out := mustRun(t, "-c", "office", "config", "show")
	if !strings.Contains(out, "coral") {
		t.Errorf("show -c office:\n%s", out)
	}
	if _, err := runCmd(t, "-c", "nowhere", "config", "show"); err == nil {
		t.Error("unknown context: want error")
	}
}

const toolsYAML = `tools:
  - name: lookupOrder
    description: Look up an order by id.
    endpoint: https://example.com/orders
    parameters:
      type: object
      properties:
        id: {type: string}
  - name: checkTimer
    description: Report the remaining timer.
    endpoint: https://example.com/timer
    method: GET
    quiet: true
`

func TestTools(t *testing.T) {
	setupTestEnv(t)
	mustRun(t, "config", "add-context", "home")
	mustRun(t, "config", "use-context", "home")
	mustRun(t, "config", "set", "home", "realtime", "tools_file", writeFile(t, "tools.yaml", toolsYAML))

	out := mustRun(t, "tools")
	for _, want := range []string{"getCurrentTime", "lookupOrder", "checkTimer"} {
		if !strings.Contains(out, want) {
			t.Errorf("tools output missing %s:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "checkTimer") && !strings.Contains(line, "yes") {
			t.Errorf("checkTimer not quiet: %q", line)
		}
	}

	out = mustRun(t, "tools", "--format", "json")
	var catalog []map[string]any
	if err := json.Unmarshal([]byte(out), &catalog); err != nil {
		t.Fatalf("tools --format json: %v\n%s", err, out)
	}
	if len(catalog) != 3 || catalog[0]["name"] != "getCurrentTime" || catalog[0]["type"] != "function" {
		t.Errorf("catalog = %v", catalog)
	}
}

func TestBuildRegistryQuietTools(t *testing.T) {
	rt := &config.Realtime{
		QuietTools: []string{"getCurrentTime"},
		ToolsFile:  writeFile(t, "tools.yaml", toolsYAML),
	}
	registry, quiet, err := buildRegistry(rt)
	if err != nil {
		t.Fatalf("buildRegistry() error: %v", err)
	}
	if got, want := strings.Join(quiet, ","), "getCurrentTime,checkTimer"; got != want {
		t.Errorf("quiet = %q, want %q", got, want)
	}
	for _, name := range []string{"getCurrentTime", "lookupOrder", "checkTimer"} {
		if _, ok := registry.Lookup(name); !ok {
			t.Errorf("Lookup(%q) = false, want true", name)
		}
	}

	// A quiet tool still plays the cue and replies; it is only kept out of
	// the conversation log.
	var cued []string
	var recorded int
	d := tools.NewDispatcher(registry,
		tools.WithQuietTools(quiet...),
		tools.WithCue(func(name string) { cued = append(cued, name) }),
		tools.WithRecorder(func(tools.Outcome) { recorded++ }),
	)
	rep := &countingReplier{}
	out := d.Dispatch(context.Background(), tools.Call{Name: "getCurrentTime", CallID: "c1"}, rep)
	if out.Err != nil {
		t.Fatalf("Dispatch() error: %v", out.Err)
	}
	if len(cued) != 1 || cued[0] != "getCurrentTime" {
		t.Errorf("cued = %v, want [getCurrentTime]", cued)
	}
	if recorded != 0 {
		t.Errorf("recorded = %d, want 0", recorded)
	}
	if rep.outputs != 1 || rep.creates != 1 {
		t.Errorf("replies = %d outputs, %d response.create, want 1 and 1", rep.outputs, rep.creates)
	}
}

type countingReplier struct {
	outputs, creates int
}

func (r *countingReplier) SendFunctionOutput(string, string) error {
	r.outputs++
	return nil
}

func (r *countingReplier) SendResponseCreate() error {
	r.creates++
	return nil
}

func TestUsage(t *testing.T) {
	setupTestEnv(t)
	mustRun(t, "config", "add-context", "home")
	mustRun(t, "config", "use-context", "home")

	if _, err := runCmd(t, "usage"); err == nil {
		t.Fatal("usage without usage_dir: want error")
	}

	dir := t.TempDir()
	store, err := usagelog.NewBadger(usagelog.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for i, r := range []usagelog.Record{
		{SessionID: "s1", ResponseID: "r1", Time: now.Add(-48 * time.Hour), InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		{SessionID: "s2", ResponseID: "r2", Time: now.Add(-time.Hour), InputTokens: 20, OutputTokens: 10, TotalTokens: 30},
	} {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	store.Close()
	mustRun(t, "config", "set", "home", "realtime", "usage_dir", dir)

	var report struct {
		Totals  usagelog.Totals   `json:"totals"`
		Records []usagelog.Record `json:"records"`
	}
	out := mustRun(t, "usage", "--format", "json", "--list")
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("usage json: %v\n%s", err, out)
	}
	if report.Totals.TotalTokens != 45 || report.Totals.Sessions != 2 || len(report.Records) != 2 {
		t.Errorf("all-time report = %+v", report)
	}

	report.Records = nil
	out = mustRun(t, "usage", "--format", "json", "--since", "24h")
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if report.Totals.TotalTokens != 30 || report.Totals.Responses != 1 || report.Records != nil {
		t.Errorf("last-day report = %+v", report)
	}
}

func TestRunCommand(t *testing.T) {
	eng := voicesession.New(nil, nil, nil)

	tests := []struct {
		line    string
		want    action
		wantErr error
	}{
		{"", actionNone, nil},
		{"/quit", actionQuit, nil},
		{"/exit", actionQuit, nil},
		{"/start", actionStart, nil},
		{"/clear", actionNone, nil},
		{"/interrupt", actionNone, voicesession.ErrNotActive},
		{"hello there", actionNone, voicesession.ErrNotActive},
	}
	for _, tt := range tests {
		got, err := runCommand(eng, tt.line)
		if got != tt.want || !errors.Is(err, tt.wantErr) {
			t.Errorf("runCommand(%q) = %v, %v; want %v, %v", tt.line, got, err, tt.want, tt.wantErr)
		}
	}

	if _, err := runCommand(eng, "/dance"); err == nil {
		t.Error("unknown command: want error")
	}

	muted := eng.IsMuted()
	runCommand(eng, "/mute")
	if eng.IsMuted() == muted {
		t.Error("/mute did not toggle")
	}
}

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		entry conversation.Entry
		want  string
	}{
		{conversation.Entry{Role: conversation.RoleUser, Text: "hi", IsFinal: true}, "you: hi"},
		{conversation.Entry{Role: conversation.RoleAssistant, Text: "Hel"}, "assistant: Hel …"},
		{conversation.Entry{Role: conversation.RoleUser, Status: conversation.StatusSpeaking}, "you: (speaking) …"},
		{conversation.Entry{Role: conversation.RoleUser, Status: conversation.StatusProcessing}, "you: (transcribing) …"},
		{conversation.Entry{Role: conversation.RoleAssistant, Text: "a\nb", IsFinal: true}, "assistant: a b"},
		{
			conversation.Entry{Role: conversation.RoleTool, ToolName: "getCurrentTime", ToolArgs: map[string]any{}, ToolResult: []byte(`{"success":true}`), IsFinal: true},
			`tool getCurrentTime({}) → {"success":true}`,
		},
		{
			conversation.Entry{Role: conversation.RoleTool, ToolName: "x", ToolError: "boom", IsFinal: true},
			`tool x(null) error: boom`,
		},
	}
	for _, tt := range tests {
		if got := formatEntry(tt.entry); got != tt.want {
			t.Errorf("formatEntry(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}

func TestSetPath(t *testing.T) {
	m := map[string]any{"voice": "alloy"}
	if err := setPath(m, []string{"vad", "threshold"}, 0.7); err != nil {
		t.Fatal(err)
	}
	vad, ok := m["vad"].(map[string]any)
	if !ok || vad["threshold"] != 0.7 {
		t.Errorf("m = %v", m)
	}
	if err := setPath(m, []string{"voice", "x"}, 1); err == nil {
		t.Error("setPath through scalar: want error")
	}
	if err := setPath(m, []string{"a", ""}, 1); err == nil {
		t.Error("setPath empty segment: want error")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("short"); got != "****" {
		t.Errorf("maskSecret(short) = %q", got)
	}
	if got := maskSecret("sk-1234567890"); got != "sk-1****7890" {
		t.Errorf("maskSecret = %q", got)
	}
}
