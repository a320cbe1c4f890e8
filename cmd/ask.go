package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/assistant"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/render"
	"github.com/kyleking/askdb/internal/retrieval"
	"github.com/kyleking/askdb/internal/synth"
)

const defaultChartPath = "latest_chart.html"

// answerer is the part of assistant.Assistant the ask command needs
type answerer interface {
	Answer(ctx context.Context, question string) (*assistant.Answer, error)
}

// lineReader is the part of readline.Instance the REPL needs
type lineReader interface {
	Readline() (string, error)
	Close() error
}

type askOptions struct {
	Format   string
	ChartOut string
	Open     bool
	Rows     int
	Verbose  bool
	Spinner  bool
	Out      io.Writer
	ErrOut   io.Writer
}

func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question with SQL against the target database",
		ArgsUsage: "[question]",
		Description: `Retrieve the most relevant table definitions, generate SQL with the completion
model and run it. Failed queries are repaired from the database error up to
--max-attempts times. Without a question an interactive prompt is started;
type exit or quit to leave it.

Examples:
  askdb ask "Show me the daily closing prices for Apple"
  askdb ask --format csv --rows 50 "average close per sector"
  askdb ask`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-attempts", Usage: "Generate-execute attempts per question"},
			&cli.IntFlag{Name: "top-k", Usage: "Schema documents retrieved per question"},
			&cli.StringFlag{Name: "format", Value: render.FormatTable, Usage: "Result format: table, markdown, csv, json"},
			&cli.IntFlag{Name: "rows", Value: 5, Usage: "Result rows to print (0 prints all)"},
			&cli.StringFlag{Name: "chart-out", Value: defaultChartPath, Usage: "Where the HTML chart is written"},
			&cli.BoolFlag{Name: "open", Usage: "Open the chart in a browser"},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	cfg, err := requireConfig(ctx)
	if err != nil {
		return err
	}

	if cmd.IsSet("max-attempts") {
		cfg.Synthesis.MaxAttempts = cmd.Int("max-attempts")
	}

	topK := cfg.Store.DefaultTopK
	if cmd.IsSet("top-k") {
		topK = cmd.Int("top-k")
	}

	provider, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	completer, err := newCompleter(cfg)
	if err != nil {
		return err
	}

	if count, err := store.Count(ctx); err == nil && count == 0 {
		logging.Warn("Schema store is empty; run 'askdb index' first")
	}

	synthesizer, err := synth.New(
		retrieval.New(store, cfg.Store.DefaultTopK),
		completer,
		provider,
		synth.WithMaxAttempts(cfg.Synthesis.MaxAttempts),
		synth.WithTopK(topK),
		synth.WithDialect(provider.Dialect()),
	)
	if err != nil {
		return err
	}

	root := cmd.Root()
	opts := askOptions{
		Format:   cmd.String("format"),
		ChartOut: cmd.String("chart-out"),
		Open:     cmd.Bool("open"),
		Rows:     cmd.Int("rows"),
		Verbose:  cfg.Debug.Verbose,
		Spinner:  true,
		Out:      writerOr(root.Writer, os.Stdout),
		ErrOut:   writerOr(root.ErrWriter, os.Stderr),
	}

	a := assistant.New(synthesizer)

	if cmd.Args().Len() > 0 {
		question := strings.Join(cmd.Args().Slice(), " ")
		return answerOnce(ctx, a, question, opts)
	}

	historyFile := ""
	if err := os.MkdirAll(config.GetConfigDir(), 0755); err == nil {
		historyFile = filepath.Join(config.GetConfigDir(), "history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "askdb> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to start prompt")
	}

	return runREPL(ctx, rl, a, opts)
}

// runREPL answers one question per line until exit, quit or EOF. Failed
// questions are reported and the loop continues.
func runREPL(ctx context.Context, rl lineReader, a answerer, opts askOptions) error {
	defer rl.Close()

	fmt.Fprintln(opts.Out, "Ask a question about your data (exit or quit to leave).")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if stderrors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to read input")
		}

		question := strings.TrimSpace(line)
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := answerOnce(ctx, a, question, opts); err != nil {
			printError(opts.ErrOut, err)
		}
		fmt.Fprintln(opts.Out)
	}
}

// answerOnce answers question and prints the SQL, a result preview and the
// chart location. Errors are returned unprinted.
func answerOnce(ctx context.Context, a answerer, question string, opts askOptions) error {
	var s *spinner.Spinner
	if opts.Spinner {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(opts.ErrOut))
		s.Suffix = " Thinking..."
		s.Start()
	}

	answer, err := a.Answer(ctx, question)
	if s != nil {
		s.Stop()
	}

	if err != nil {
		return err
	}

	printAnswer(opts, answer)

	if answer.Chart.IsNone() {
		color.New(color.FgYellow).Fprintf(opts.Out,
			"[No Visualization] %s result, shown as a table\n", answer.Chart.Kind.Topology())
		return nil
	}

	if err := writeChart(opts.ChartOut, answer); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(opts.Out, "[Visualization Generated] Saved to %s\n", opts.ChartOut)

	if opts.Open {
		if err := openChart(ctx, opts.ChartOut, opts.Out, opts.ErrOut); err != nil {
			logging.WithError(err).Warn("Could not open chart in a browser")
		}
	}

	return nil
}

func printAnswer(opts askOptions, answer *assistant.Answer) {
	bold := color.New(color.Bold)

	if opts.Verbose {
		for _, attempt := range answer.Attempts {
			status := color.GreenString("ok")
			if !attempt.Outcome.Succeeded() {
				status = color.RedString(attempt.Outcome.Err)
			}
			fmt.Fprintf(opts.Out, "Attempt #%d: %s\n  -> %s\n", attempt.Index, attempt.SQL, status)
		}
		fmt.Fprintln(opts.Out)
	}

	bold.Fprintln(opts.Out, "SQL:")
	fmt.Fprintf(opts.Out, "%s\n\n", answer.SQL)

	preview := answer.Result
	if opts.Rows > 0 {
		preview = answer.Result.Head(opts.Rows)
	}

	if err := render.Table(opts.Out, preview, opts.Format); err != nil {
		printError(opts.ErrOut, err)
		return
	}

	if total := answer.Result.RowCount(); preview.RowCount() < total {
		fmt.Fprintf(opts.Out, "showing %d of %d rows\n", preview.RowCount(), total)
	}
}

func writeChart(path string, answer *assistant.Answer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create chart directory")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create chart file")
	}
	defer f.Close()

	return render.ChartHTML(f, answer.Chart, answer.Result)
}

// printError prints err and any recovery suggestions attached to it
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed)
	red.Fprintf(w, "Error: %v\n", err)

	for _, suggestion := range errors.Suggestions(err) {
		fmt.Fprintf(w, "  - %s\n", suggestion)
	}
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
