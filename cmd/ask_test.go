package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/assistant"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/testutil"
	"github.com/kyleking/askdb/internal/types"
	"github.com/kyleking/askdb/internal/viz"
)

type scriptedLines struct {
	lines  []string
	errs   []error
	closed bool
}

func (s *scriptedLines) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line, err := s.lines[0], s.errs[0]
	s.lines, s.errs = s.lines[1:], s.errs[1:]
	return line, err
}

func (s *scriptedLines) Close() error {
	s.closed = true
	return nil
}

func lines(values ...string) *scriptedLines {
	return &scriptedLines{lines: values, errs: make([]error, len(values))}
}

type fakeAnswerer struct {
	answers   map[string]*assistant.Answer
	err       error
	questions []string
}

func (f *fakeAnswerer) Answer(_ context.Context, question string) (*assistant.Answer, error) {
	f.questions = append(f.questions, question)
	if answer, ok := f.answers[question]; ok {
		return answer, nil
	}
	return nil, f.err
}

func testOptions(t *testing.T) (askOptions, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var out, errOut bytes.Buffer
	return askOptions{
		Format:   "table",
		ChartOut: filepath.Join(t.TempDir(), "chart.html"),
		Rows:     5,
		Out:      &out,
		ErrOut:   &errOut,
	}, &out, &errOut
}

func lineAnswer() *assistant.Answer {
	rs := testutil.NewResultSet(
		testutil.WithTemporal("date", testutil.Days(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 8)...),
		testutil.WithNumeric("close_price", testutil.Sequence(150, 8)...),
	)

	return &assistant.Answer{
		Question: testutil.TestQuestion,
		SQL:      "SELECT date, close_price FROM stock_prices WHERE symbol = 'AAPL'",
		Result:   rs,
		Chart:    viz.Classify(rs, testutil.TestQuestion),
		Attempts: []types.AttemptRecord{
			{Index: 1, SQL: "SELECT date, close FROM stock_prices", Outcome: types.Failure("no such column: close")},
			{Index: 2, SQL: "SELECT date, close_price FROM stock_prices WHERE symbol = 'AAPL'", Outcome: types.Success(rs)},
		},
	}
}

func TestAnswerOnceWritesChart(t *testing.T) {
	opts, out, _ := testOptions(t)
	a := &fakeAnswerer{answers: map[string]*assistant.Answer{testutil.TestQuestion: lineAnswer()}}

	require.NoError(t, answerOnce(context.Background(), a, testutil.TestQuestion, opts))

	output := out.String()
	assert.Contains(t, output, "SELECT date, close_price FROM stock_prices WHERE symbol = 'AAPL'")
	assert.Contains(t, output, "2024-01-01")
	assert.Contains(t, output, "showing 5 of 8 rows")
	assert.Contains(t, output, "[Visualization Generated] Saved to "+opts.ChartOut)
	assert.NotContains(t, output, "Attempt #1")

	page, err := os.ReadFile(opts.ChartOut)
	require.NoError(t, err)
	assert.Contains(t, string(page), "close_price")
}

func TestAnswerOnceVerboseShowsAttempts(t *testing.T) {
	opts, out, _ := testOptions(t)
	opts.Verbose = true
	a := &fakeAnswerer{answers: map[string]*assistant.Answer{"q": lineAnswer()}}

	require.NoError(t, answerOnce(context.Background(), a, "q", opts))

	assert.Contains(t, out.String(), "Attempt #1: SELECT date, close FROM stock_prices")
	assert.Contains(t, out.String(), "no such column: close")
	assert.Contains(t, out.String(), "Attempt #2")
}

func TestAnswerOnceTabularResult(t *testing.T) {
	opts, out, _ := testOptions(t)
	rs := testutil.NewResultSet(testutil.WithText("name", "Apple", "Microsoft"))
	a := &fakeAnswerer{answers: map[string]*assistant.Answer{"q": {
		SQL:    "SELECT name FROM tickers",
		Result: rs,
		Chart:  viz.Classify(rs, "q"),
	}}}

	require.NoError(t, answerOnce(context.Background(), a, "q", opts))

	assert.Contains(t, out.String(), "[No Visualization] Tabular result")
	assert.NoFileExists(t, opts.ChartOut)
}

func TestAnswerOnceReturnsErrorUnprinted(t *testing.T) {
	opts, out, errOut := testOptions(t)
	a := &fakeAnswerer{err: errors.NewConnectivityError("http://localhost:11434/api/generate", io.ErrUnexpectedEOF)}

	err := answerOnce(context.Background(), a, "q", opts)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnectivity))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestREPL(t *testing.T) {
	t.Run("answers until quit and survives failures", func(t *testing.T) {
		opts, out, errOut := testOptions(t)
		a := &fakeAnswerer{
			answers: map[string]*assistant.Answer{"show apple": lineAnswer()},
			err:     errors.New(errors.ErrTypeExhausted, "failed to generate valid SQL after 3 attempts").WithSuggestion("Rephrase the question"),
		}
		rl := lines("", "  show apple  ", "nonsense", "QUIT", "never asked")

		require.NoError(t, runREPL(context.Background(), rl, a, opts))

		assert.Equal(t, []string{"show apple", "nonsense"}, a.questions)
		assert.True(t, rl.closed)
		assert.Contains(t, out.String(), "[Visualization Generated]")
		assert.Contains(t, errOut.String(), "Error: ")
		assert.Contains(t, errOut.String(), "  - Rephrase the question")
	})

	t.Run("EOF ends the session", func(t *testing.T) {
		opts, _, _ := testOptions(t)
		a := &fakeAnswerer{}

		require.NoError(t, runREPL(context.Background(), lines(), a, opts))
		assert.Empty(t, a.questions)
	})

	t.Run("interrupt on an empty line ends the session", func(t *testing.T) {
		opts, _, _ := testOptions(t)
		a := &fakeAnswerer{}
		rl := &scriptedLines{
			lines: []string{"half typed", "", "exit"},
			errs:  []error{readline.ErrInterrupt, readline.ErrInterrupt, nil},
		}

		require.NoError(t, runREPL(context.Background(), rl, a, opts))
		assert.Empty(t, a.questions)
		assert.Equal(t, []string{"exit"}, rl.lines)
	})

	t.Run("cancelled context ends the session", func(t *testing.T) {
		opts, _, _ := testOptions(t)
		a := &fakeAnswerer{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, runREPL(ctx, lines("show apple"), a, opts))
		assert.Empty(t, a.questions)
	})
}

type fetchingLauncher struct {
	body string
}

func (l *fetchingLauncher) Browse(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	l.body = string(data)
	return err
}

func TestServeChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>chart</html>"), 0600))

	l := &fetchingLauncher{}
	require.NoError(t, serveChart(context.Background(), path, l, testutil.ShortTestTimeout))
	assert.Equal(t, "<html>chart</html>", l.body)
}

func TestServeChartMissingFile(t *testing.T) {
	err := serveChart(context.Background(), filepath.Join(t.TempDir(), "missing.html"), &fetchingLauncher{}, time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFileSystem))
}
