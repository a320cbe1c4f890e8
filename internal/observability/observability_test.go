package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveExecutionCountsByOutcome(t *testing.T) {
	success := testutil.ToFloat64(synthesisAttemptsTotal.WithLabelValues("success"))
	failure := testutil.ToFloat64(synthesisAttemptsTotal.WithLabelValues("failure"))

	ObserveExecution(true, 3*time.Millisecond)
	ObserveExecution(false, 3*time.Millisecond)
	ObserveExecution(false, 3*time.Millisecond)

	assert.Equal(t, success+1, testutil.ToFloat64(synthesisAttemptsTotal.WithLabelValues("success")))
	assert.Equal(t, failure+2, testutil.ToFloat64(synthesisAttemptsTotal.WithLabelValues("failure")))
}

func TestObserveIndexingIgnoresZero(t *testing.T) {
	indexed := testutil.ToFloat64(indexedDocumentsTotal)
	skipped := testutil.ToFloat64(indexSkipsTotal)

	ObserveIndexing(2, 0)

	assert.Equal(t, indexed+2, testutil.ToFloat64(indexedDocumentsTotal))
	assert.Equal(t, skipped, testutil.ToFloat64(indexSkipsTotal))
}

func TestRunIDRoundTrip(t *testing.T) {
	assert.Empty(t, RunIDFromContext(context.Background()))

	id := NewRunID()
	ctx := ContextWithRunID(context.Background(), id)
	assert.Equal(t, id, RunIDFromContext(ctx))
	assert.Len(t, id, 36)
}

func TestMetricsServerServesRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	IncrementQuestions(StatusAnswered)

	s, err := StartMetricsServer(ctx, "127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "askdb_questions_total"))
}
