package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/term"

	"netprobe/config"
	ncerr "netprobe/internal/errors"
)

const (
	shellBanner = "netprobe network diagnostics terminal - type 'help' for commands"
	shellPrompt = "> "
)

// command is one shell verb.
type command struct {
	name    string
	args    string // usage text for the arguments
	help    string
	minArgs int
	run     func(ctx context.Context, s *Shell, args []string)
}

// Shell is the interactive command interpreter.  Commands run one at a
// time on the calling goroutine; a traffic run blocks the prompt until
// it finishes or is interrupted.
type Shell struct {
	env      *Env
	commands []*command
	index    map[string]*command
}

// NewShell returns a shell bound to env.
func NewShell(env *Env) *Shell {
	s := &Shell{env: env, index: make(map[string]*command)}
	for _, c := range shellCommands() {
		s.commands = append(s.commands, c)
		s.index[c.name] = c
	}
	s.index["trace"] = s.index["traceroute"]
	s.index["quit"] = s.index["exit"]
	return s
}

// Run reads and executes commands until exit, end of input or ctx is
// cancelled.
func (s *Shell) Run(ctx context.Context) error {
	out := s.env.stdout()
	fmt.Fprintln(out, shellBanner)

	r := s.lineReader(out)
	defer r.Close()

	for {
		line, err := readLine(ctx, r)
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out)
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("read command: %w", err)
		}

		if s.Execute(ctx, line) {
			return nil
		}
	}
}

// Execute runs one command line.  It reports whether the shell should
// exit.
func (s *Shell) Execute(ctx context.Context, line string) (exit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	out := s.env.stdout()

	name := strings.ToLower(fields[0])
	if name == "exit" || name == "quit" {
		return true
	}

	c, ok := s.index[name]
	if !ok {
		fmt.Fprintln(out, "Unknown command. Type 'help' for available commands.")
		return false
	}
	args := fields[1:]
	if len(args) < c.minArgs {
		fmt.Fprintf(out, "Usage: %s %s\n", c.name, c.args)
		return false
	}

	s.env.Logger.Debug("shell: %s %v", c.name, args)
	c.run(ctx, s, args)
	return false
}

// ── command table ────────────────────────────────────────────────────

func shellCommands() []*command {
	return []*command{
		{name: "help", help: "Show this help message", run: cmdHelp},
		{name: "ping", args: "<host>", help: "Check reachability with ICMP echo", minArgs: 1, run: cmdPing},
		{name: "traceroute", args: "<host>", help: "Trace the route to a host", minArgs: 1, run: cmdTrace},
		{name: "view_config", help: "View current configuration", run: cmdViewConfig},
		{name: "config_telegram_token", args: "<token>", help: "Set Telegram bot token", minArgs: 1,
			run: settingCmd(func(st *config.Settings, v string) (string, error) {
				st.TelegramToken = v
				return "Telegram token updated.", nil
			})},
		{name: "config_telegram_chat_id", args: "<id>", help: "Set Telegram chat ID", minArgs: 1,
			run: settingCmd(func(st *config.Settings, v string) (string, error) {
				st.TelegramChatID = v
				return "Telegram chat ID updated.", nil
			})},
		{name: "config_default_target", args: "<host>", help: "Set the default traffic target", minArgs: 1,
			run: settingCmd(func(st *config.Settings, v string) (string, error) {
				st.DefaultTarget = v
				return fmt.Sprintf("Default target set to %s.", v), nil
			})},
		{name: "config_default_port", args: "<port>", help: "Set the default traffic port", minArgs: 1,
			run: settingCmd(func(st *config.Settings, v string) (string, error) {
				port, err := config.ParsePort(v)
				if err != nil || port == 0 {
					return "", fmt.Errorf("invalid port number %q: expected 1-65535", v)
				}
				st.DefaultPort = port
				return fmt.Sprintf("Default port set to %d.", port), nil
			})},
		{name: "config_traffic_duration", args: "<seconds>", help: "Set the default traffic duration", minArgs: 1,
			run: settingCmd(func(st *config.Settings, v string) (string, error) {
				secs, err := config.ParseSeconds(v)
				if err != nil {
					return "", err
				}
				st.TrafficDuration = secs
				return fmt.Sprintf("Traffic duration set to %d seconds.", secs), nil
			})},
		{name: "test_telegram", help: "Send a Telegram test message", run: cmdTestTelegram},
		{name: "generate_traffic", args: "[host] [port] [seconds]", help: "Generate TCP and UDP traffic", run: cmdGenerate},
		{name: "clear", help: "Clear the screen", run: cmdClear},
		{name: "exit", help: "Exit the program (also: quit)"},
	}
}

func cmdHelp(_ context.Context, s *Shell, _ []string) {
	out := s.env.stdout()
	fmt.Fprintln(out, "Available commands:")

	width := 0
	for _, c := range s.commands {
		if n := len(c.name) + len(c.args) + 1; n > width {
			width = n
		}
	}
	for _, c := range s.commands {
		usage := strings.TrimSpace(c.name + " " + c.args)
		fmt.Fprintf(out, "  %-*s  %s\n", width, usage, c.help)
	}
}

func cmdPing(ctx context.Context, s *Shell, args []string) {
	ctx, stop := interruptible(ctx)
	defer stop()
	if err := s.env.Diagnostics.Ping(ctx, args[0], s.env.stdout()); err != nil {
		fmt.Fprintf(s.env.stdout(), "Error: %v\n", err)
	}
}

func cmdTrace(ctx context.Context, s *Shell, args []string) {
	ctx, stop := interruptible(ctx)
	defer stop()
	if err := s.env.Diagnostics.Trace(ctx, args[0], s.env.stdout()); err != nil {
		fmt.Fprintf(s.env.stdout(), "Error: %v\n", err)
	}
}

func cmdViewConfig(_ context.Context, s *Shell, _ []string) {
	out := s.env.stdout()
	st := s.env.Settings.Settings()

	port := fmt.Sprintf("%d", st.Port())
	if st.DefaultPort == 0 {
		port += " (default)"
	}
	duration := fmt.Sprintf("%d seconds", st.Duration())
	if st.TrafficDuration == 0 {
		duration += " (default)"
	}

	rows := [][2]string{
		{"Telegram Token", orNotSet(maskSecret(st.TelegramToken))},
		{"Telegram Chat ID", orNotSet(st.TelegramChatID)},
		{"Default Target", orNotSet(st.DefaultTarget)},
		{"Default Port", port},
		{"Traffic Duration", duration},
		{"Settings File", s.env.Settings.Path()},
	}
	fmt.Fprintln(out, "Current Configuration:")
	for _, r := range rows {
		fmt.Fprintf(out, "  %-17s %s\n", r[0]+":", r[1])
	}
}

// settingCmd adapts a single-value setter into a command that persists
// the change immediately.
func settingCmd(set func(st *config.Settings, v string) (string, error)) func(context.Context, *Shell, []string) {
	return func(_ context.Context, s *Shell, args []string) {
		out := s.env.stdout()
		var msg string
		var setErr error
		err := s.env.Settings.Update(func(st *config.Settings) {
			msg, setErr = set(st, args[0])
		})
		switch {
		case setErr != nil:
			fmt.Fprintf(out, "Error: %v\n", setErr)
		case err != nil:
			fmt.Fprintf(out, "Failed to save config: %v\n", err)
		default:
			fmt.Fprintln(out, msg)
		}
	}
}

func cmdTestTelegram(ctx context.Context, s *Shell, _ []string) {
	out := s.env.stdout()

	n, err := s.env.Notifier(s.env.Settings.Settings())
	if err != nil {
		if ncerr.Is(err, ncerr.ErrAlertNotConfigured) {
			fmt.Fprintln(out, "Error: Telegram token or chat ID not configured")
			return
		}
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if err := n.Send(ctx, "Test message from netprobe"); err != nil {
		fmt.Fprintf(out, "Failed to send Telegram message: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Telegram test message sent successfully!")
}

func cmdGenerate(ctx context.Context, s *Shell, args []string) {
	out := s.env.stdout()
	target, port, seconds := effectiveDefaults(s.env.Settings.Settings())

	if len(args) > 0 {
		target = args[0]
	}
	if target == "" {
		fmt.Fprintln(out, "No target specified and no default target configured")
		return
	}
	if len(args) > 1 {
		p, err := config.ParsePort(args[1])
		if err != nil {
			fmt.Fprintln(out, "Invalid port number")
			return
		}
		port = p
	}
	if len(args) > 2 {
		d, err := config.ParseSeconds(args[2])
		if err != nil {
			fmt.Fprintln(out, "Invalid duration")
			return
		}
		seconds = d
	}

	s.env.GenerateTraffic(ctx, target, port, uint64(seconds))
}

func cmdClear(_ context.Context, s *Shell, _ []string) {
	fmt.Fprint(s.env.stdout(), "\x1b[2J\x1b[H")
}

// ── helpers ──────────────────────────────────────────────────────────

func orNotSet(v string) string {
	if v == "" {
		return "Not set"
	}
	return v
}

// maskSecret keeps the first four characters of a credential.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", 8)
}

// Commands returns the primary command names in table order.
func (s *Shell) Commands() []string {
	names := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		names = append(names, c.name)
	}
	return names
}

// Aliases returns every accepted name, sorted.
func (s *Shell) Aliases() []string {
	names := make([]string, 0, len(s.index))
	for n := range s.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ── line input ───────────────────────────────────────────────────────

type lineReader interface {
	ReadLine() (string, error)
	Close()
}

// readLine waits for one line or ctx, whichever comes first.  A read
// abandoned by ctx finishes in the background.
func readLine(ctx context.Context, r lineReader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadLine()
		ch <- result{line, err}
	}()

	select {
	case res := <-ch:
		return res.line, res.err
	case <-ctx.Done():
		r.Close()
		return "", ctx.Err()
	}
}

// lineReader picks terminal line editing when both ends are a TTY.
func (s *Shell) lineReader(out io.Writer) lineReader {
	in := s.env.stdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if o, ok := out.(*os.File); ok && term.IsTerminal(int(o.Fd())) {
			rw := struct {
				io.Reader
				io.Writer
			}{f, o}
			return &termReader{fd: int(f.Fd()), term: term.NewTerminal(rw, shellPrompt)}
		}
	}
	return &plainReader{r: bufio.NewReader(in), out: out}
}

// plainReader serves pipes and files.
type plainReader struct {
	r   *bufio.Reader
	out io.Writer
}

func (p *plainReader) ReadLine() (string, error) {
	fmt.Fprint(p.out, shellPrompt)
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *plainReader) Close() {}

// termReader edits lines in raw mode.  Raw mode is held only while a
// line is being read, so Ctrl-C during a command still raises SIGINT.
type termReader struct {
	fd   int
	term *term.Terminal

	mu    sync.Mutex
	saved *term.State
}

func (t *termReader) ReadLine() (string, error) {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	t.saved = state
	t.mu.Unlock()
	defer t.Close()

	return t.term.ReadLine()
}

// Close restores the terminal if a read left it in raw mode.
func (t *termReader) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saved != nil {
		term.Restore(t.fd, t.saved) //nolint:errcheck
		t.saved = nil
	}
}
