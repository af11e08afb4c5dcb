package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/haivivi/parley/pkg/cli"
	"github.com/haivivi/parley/pkg/conversation"
	"github.com/haivivi/parley/pkg/voicesession"
)

var runPlain bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Talk to the assistant in the terminal",
	Long: `Start a voice session with the selected context's realtime settings.

Type a line to send it as a text message. Commands:
  /mute       toggle the microphone
  /stop       end the session
  /start      start a new session
  /clear      clear the conversation
  /interrupt  cancel the assistant's current response
  /wake       simulate the wake word
  /quit       exit

Use --plain to print events as lines instead of drawing the screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRealtime()
		if err != nil {
			return err
		}

		fd := os.Stdout.Fd()
		plain := runPlain || !term.IsTerminal(fd)
		logs := cli.NewLogWriter(200)
		var logOut io.Writer = logs
		if plain {
			logOut = os.Stderr
		}
		logger := newLogger(logOut)

		vs, err := newVoiceSession(rt, logger)
		if err != nil {
			return err
		}
		defer vs.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		v := &view{
			engine: vs.Engine,
			logs:   logs,
			logger: logger,
			out:    cmd.OutOrStdout(),
			styles: cli.NewStyles(cli.DefaultTheme),
			title:  "parley " + rt.TransportName(),
			size: func() (int, int) {
				w, h, err := term.GetSize(fd)
				if err != nil {
					return 80, 24
				}
				return w, h
			},
		}
		return runSession(ctx, vs.Engine, os.Stdin, v, plain)
	},
}

// runSession starts a session and serves input lines until quit, EOF or
// ctx is done.
func runSession(ctx context.Context, eng *voicesession.Engine, in io.Reader, v *view, plain bool) error {
	// Changes coalesce into pending until the loop picks them up.
	var pending atomic.Uint32
	changed := make(chan struct{}, 1)
	cancel := eng.Subscribe(func(c voicesession.Change) {
		pending.Or(uint32(c))
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	start := func() {
		go func() {
			if err := eng.StartSession(ctx); err != nil {
				v.logger.Error("start session failed", "error", err)
			}
		}()
	}
	start()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var tick <-chan time.Time
	if !plain {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		tick = t.C
		v.clear()
	}

	var p printer
	for {
		select {
		case <-ctx.Done():
			eng.StopSession()
			return nil
		case line, ok := <-lines:
			if !ok {
				eng.StopSession()
				return nil
			}
			act, err := runCommand(eng, strings.TrimSpace(line))
			if err != nil {
				v.logger.Warn("command failed", "input", line, "error", err)
			}
			switch act {
			case actionQuit:
				eng.StopSession()
				return nil
			case actionStart:
				start()
			}
		case <-changed:
			if plain {
				p.print(v, voicesession.Change(pending.Swap(0)))
			}
		case <-tick:
			v.draw()
		}
	}
}

type action int

const (
	actionNone action = iota
	actionStart
	actionQuit
)

// runCommand applies one input line to eng.
func runCommand(eng *voicesession.Engine, line string) (action, error) {
	switch line {
	case "":
	case "/quit", "/exit":
		return actionQuit, nil
	case "/mute":
		eng.ToggleMute()
	case "/stop":
		eng.StopSession()
	case "/start":
		return actionStart, nil
	case "/clear":
		eng.ClearConversation()
	case "/interrupt":
		return actionNone, eng.Interrupt()
	case "/wake":
		eng.OnWakeWord()
	default:
		if strings.HasPrefix(line, "/") {
			return actionNone, fmt.Errorf("unknown command %s", line)
		}
		return actionNone, eng.SendTextMessage(line)
	}
	return actionNone, nil
}

// view renders the engine state.
type view struct {
	engine *voicesession.Engine
	logs   *cli.LogWriter
	logger *slog.Logger
	out    io.Writer
	styles cli.Styles
	title  string
	size   func() (width, height int)
}

func (v *view) clear() {
	_, h := v.size()
	fmt.Fprintf(v.out, "\x1b[2J\x1b[%d;1H", h)
}

// draw repaints the frame above the input line, keeping the cursor where
// the user is typing.
func (v *view) draw() {
	w, h := v.size()
	fmt.Fprint(v.out, "\x1b7\x1b[H"+v.frame().Render(w, h-1)+"\x1b8")
}

func (v *view) frame() cli.Frame {
	eng := v.engine
	status := eng.Status()
	mic := "mic on"
	if eng.IsMuted() {
		mic = "mic muted"
	}
	return cli.Frame{
		Styles: v.styles,
		Title:  v.title,
		Status: v.styles.Status(string(voicesession.ClassifyStatus(status)), status),
		Sections: []cli.Section{
			{Label: "Conversation", Lines: conversationLines(eng.Conversation())},
			{Label: "Level", Lines: []string{cli.Meter(eng.CurrentVolume(), 30) + "  " + mic + "  " + eng.State().String()}},
			{Label: "Log", Lines: v.logs.Lines()},
		},
		Help: "/mute /stop /start /clear /interrupt /wake /quit · text is sent as a message",
	}
}

// printer writes status changes and finished conversation entries as
// lines. It is used only from the run loop.
type printer struct {
	status  string
	printed map[string]bool
}

func (p *printer) print(v *view, c voicesession.Change) {
	eng := v.engine
	if c.Has(voicesession.ChangeStatus) {
		if status := eng.Status(); status != p.status {
			p.status = status
			fmt.Fprintln(v.out, v.styles.Status(string(voicesession.ClassifyStatus(status)), status))
		}
	}
	if c.Has(voicesession.ChangeMute) {
		fmt.Fprintf(v.out, "muted: %v\n", eng.IsMuted())
	}
	if !c.Has(voicesession.ChangeConversation) {
		return
	}
	if p.printed == nil {
		p.printed = make(map[string]bool)
	}
	for _, e := range eng.Conversation() {
		if e.IsFinal && !p.printed[e.ID] {
			p.printed[e.ID] = true
			fmt.Fprintln(v.out, formatEntry(e))
		}
	}
}

func conversationLines(entries []conversation.Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	return lines
}

func formatEntry(e conversation.Entry) string {
	var b strings.Builder
	switch e.Role {
	case conversation.RoleUser:
		b.WriteString("you: ")
	case conversation.RoleAssistant:
		b.WriteString("assistant: ")
	case conversation.RoleTool:
		args, _ := json.Marshal(e.ToolArgs)
		fmt.Fprintf(&b, "tool %s(%s)", e.ToolName, args)
		switch {
		case e.ToolError != "":
			b.WriteString(" error: " + e.ToolError)
		case len(e.ToolResult) > 0:
			b.WriteString(" → " + string(e.ToolResult))
		}
		return b.String()
	}
	text := strings.ReplaceAll(e.Text, "\n", " ")
	switch {
	case e.Status == conversation.StatusSpeaking && text == "":
		text = "(speaking)"
	case e.Status == conversation.StatusProcessing && text == "":
		text = "(transcribing)"
	}
	b.WriteString(text)
	if !e.IsFinal {
		b.WriteString(" …")
	}
	return b.String()
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "print events as lines instead of drawing the screen")
	rootCmd.AddCommand(runCmd)
}
