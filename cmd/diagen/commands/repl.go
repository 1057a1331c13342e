package commands

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/am"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/docinput"
	"github.com/kenjpais/diagram-generator/logger"
	"github.com/kenjpais/diagram-generator/pipeline"
	"github.com/kenjpais/diagram-generator/version"
)

const (
	replPrompt      = "You: "
	replHistoryFile = "repl_history"
	replHistoryMax  = 1000
	goodbye         = "Thanks for using diagen! Goodbye!"
)

type metaCommand int

const (
	metaNone metaCommand = iota
	metaHelp
	metaExit
	metaClear
)

// parseMeta recognises session commands with or without the leading slash
func parseMeta(line string) metaCommand {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(line), "/")) {
	case "help", "h":
		return metaHelp
	case "exit", "quit", "q":
		return metaExit
	case "clear":
		return metaClear
	default:
		return metaNone
	}
}

var metaSuggestions = []prompt.Suggest{
	{Text: "/help", Description: "Show available commands"},
	{Text: "/exit", Description: "Exit diagen"},
	{Text: "/quit", Description: "Exit diagen"},
	{Text: "/clear", Description: "Clear the screen"},
	{Text: "--filename", Description: "Attach a .md or .txt document"},
}

// session is one interactive run. The stack is rebuilt between requests
// when the config watcher delivers a new config.
type session struct {
	app  *App
	opts *generateOptions
	conn *sql.DB

	mu      sync.Mutex
	pending *am.Config

	st       *stack
	progress *progress
	count    int
	exiting  bool
	history  []string
	build    func(*am.Config) (*stack, error)
}

func runREPL(cmd *cobra.Command, app *App, opts *generateOptions) error {
	opts.captureChanged(cmd)
	cfg, loader, err := app.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	conn, err := openDatabase(cfg)
	if err != nil {
		logger.Warnw("History disabled for this session", logger.FieldError, err)
	}
	if conn != nil {
		defer conn.Close()
	}

	tty := isTerminal(os.Stdin) && isTerminal(os.Stdout)
	s := &session{
		app:      app,
		opts:     opts,
		conn:     conn,
		progress: newProgress(tty, app.Verbosity),
	}
	s.build = func(c *am.Config) (*stack, error) { return buildStack(c, s.conn, s.progress) }
	if s.st, err = s.build(cfg); err != nil {
		return err
	}
	if err := s.st.renderer.Available(); err != nil {
		display.Error(err)
	}

	if watcher, err := am.NewConfigWatcher(loader); err != nil {
		logger.Warnw("Config watcher unavailable", logger.FieldError, err)
	} else {
		watcher.OnReload(func(c *am.Config) error {
			s.mu.Lock()
			s.pending = c
			s.mu.Unlock()
			return nil
		})
		watcher.Start()
		defer watcher.Stop()
	}

	dbPath := ""
	if conn != nil {
		dbPath = cfg.GetDatabasePath()
	}
	printWelcome(app.Verbosity, s.st.provider, dbPath)
	base := context.WithoutCancel(cmd.Context())
	if tty {
		s.runPrompt(base)
	} else {
		s.runLines(base, os.Stdin)
	}
	pterm.Println()
	pterm.Println(goodbye)
	return nil
}

// runPrompt uses go-prompt with completion and a persistent history file.
// Ctrl+D on an empty line ends the session.
func (s *session) runPrompt(ctx context.Context) {
	histPath := historyPath()
	s.history = loadHistory(histPath)

	p := prompt.New(
		func(line string) {
			if strings.TrimSpace(line) != "" {
				s.remember(line)
			}
			s.handle(ctx, line)
		},
		completer,
		prompt.OptionTitle("diagen"),
		prompt.OptionPrefix(replPrompt),
		prompt.OptionHistory(s.history),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return s.exiting }),
	)
	p.Run()
	saveHistory(histPath, s.history)
}

// runLines reads newline-separated requests, for piped input.
// An interrupt while waiting for input ends the session.
func (s *session) runLines(ctx context.Context, in io.Reader) {
	done := make(chan struct{})
	defer close(done)
	lines := scanLines(in, done)

	for !s.exiting {
		pterm.Print(replPrompt)
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		select {
		case line, ok := <-lines:
			signal.Stop(sigs)
			if !ok {
				return
			}
			s.handle(ctx, line)
		case <-sigs:
			signal.Stop(sigs)
			return
		}
	}
}

// scanLines feeds lines from in until EOF or until done is closed.
func scanLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// handle processes one input line. Errors are reported, never returned.
func (s *session) handle(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	switch parseMeta(line) {
	case metaExit:
		s.exiting = true
		return
	case metaHelp:
		printHelp()
		return
	case metaClear:
		pterm.Print("\033[H\033[2J")
		return
	}

	parsed, err := docinput.ParseLine(line)
	if err != nil {
		display.Error(err)
		return
	}
	if parsed.Request == "" {
		display.Warning("Please provide a diagram request.")
		return
	}

	s.applyReload()
	s.count++
	pterm.Println()
	pterm.DefaultSection.Printfln("Processing request #%d...", s.count)

	req := pipeline.Request{Text: parsed.Request}
	if parsed.Filename != "" {
		if err := attachDocument(&req, parsed.Filename, s.app.Verbosity); err != nil {
			display.Error(err)
			return
		}
	}

	reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	res, err := runOnce(reqCtx, s.st, req, s.progress)
	stop()
	switch {
	case err == nil:
		printResult(res, s.app.Verbosity)
	case errors.IsAny(err, context.Canceled, context.DeadlineExceeded):
		display.Warning("Generation cancelled by user.")
	default:
		display.Error(errors.Wrap(err, "failed to generate diagram"))
	}
	pterm.Println()
}

// applyReload swaps in a reloaded config. A config that fails to build
// keeps the previous stack.
func (s *session) applyReload() {
	s.mu.Lock()
	cfg := s.pending
	s.pending = nil
	s.mu.Unlock()
	if cfg == nil {
		return
	}
	if err := s.opts.apply(cfg); err != nil {
		display.Warning("Ignoring reloaded config: %v", err)
		return
	}
	st, err := s.build(cfg)
	if err != nil {
		display.Warning("Ignoring reloaded config: %v", err)
		return
	}
	s.st = st
	display.Info("Configuration reloaded")
}

func (s *session) remember(line string) {
	if n := len(s.history); n == 0 || s.history[n-1] != line {
		s.history = append(s.history, line)
	}
}

func completer(d prompt.Document) []prompt.Suggest {
	word := d.GetWordBeforeCursor()
	if word == "" {
		return nil
	}
	if strings.HasPrefix(word, "/") || strings.HasPrefix(word, "--") {
		return prompt.FilterHasPrefix(metaSuggestions, word, true)
	}
	return nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".diagen", replHistoryFile)
}

func loadHistory(path string) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func saveHistory(path string, history []string) {
	if path == "" || len(history) == 0 {
		return
	}
	if len(history) > replHistoryMax {
		history = history[len(history)-replHistoryMax:]
	}
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		logger.Debugw("Could not create history directory", logger.FieldError, err)
		return
	}
	data := strings.Join(history, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		logger.Debugw("Could not save REPL history", logger.FieldError, err)
	}
}

func printWelcome(verbosity int, provider, dbPath string) {
	pterm.DefaultHeader.WithFullWidth().Println("diagen - Interactive Mode")
	pterm.Println()

	info := version.Get()
	lines := []string{
		fmt.Sprintf("Version:   %s (commit %s)", info.Version, info.Short()),
		"Provider:  " + provider,
		"Verbosity: " + logger.LevelName(verbosity),
	}
	if dbPath != "" {
		lines = append(lines, "Database:  "+dbPath)
	}
	pterm.DefaultBox.WithTitle("diagen").Println(strings.Join(lines, "\n"))
	pterm.Println()
	pterm.Println("Type your diagram requests below.")
	pterm.Println("Type '/help' for available commands or '/exit' to quit.")
	pterm.Println()
}

func printHelp() {
	pterm.DefaultSection.Println("Available Commands")
	pterm.Println("  /help, /h              Show this help message")
	pterm.Println("  /exit, /quit, /q       Exit the application")
	pterm.Println("  /clear                 Clear the screen")
	pterm.Println()
	pterm.Println("Usage:")
	pterm.Println("  Type a diagram request and press Enter, e.g.")
	pterm.Println("    Draw a three-tier web application on AWS")
	pterm.Println("  Attach a document with --filename <path> (.md or .txt)")
	pterm.Println()
	pterm.Println("  Filenames are generated from the time: diagram_YYYYMMDD_HHMMSS")
	pterm.Println()
}
