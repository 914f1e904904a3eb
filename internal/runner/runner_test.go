package runner

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/pkg/export"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
	"github.com/Ramsey-B/nettle/pkg/redis"
	"github.com/Ramsey-B/nettle/pkg/similarity"
	"github.com/Ramsey-B/nettle/pkg/sources"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testSettings() pipeline.Settings {
	return pipeline.ResolveSettings(context.Background(), config.MatchSettings{Workers: "2"}, similarity.DefaultRegistry(), testLogger())
}

type recordingSink struct {
	mu       sync.Mutex
	runs     []models.RunSummary
	entities [][]*models.Entity
	err      error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Export(_ context.Context, run models.RunSummary, entities []*models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	s.entities = append(s.entities, entities)
	return s.err
}

// contextSink fails like a real sink when its context is done
type contextSink struct {
	runs   []models.RunSummary
	ctxErr error
}

func (s *contextSink) Name() string { return "context" }

func (s *contextSink) Export(ctx context.Context, run models.RunSummary, _ []*models.Entity) error {
	s.ctxErr = ctx.Err()
	if s.ctxErr != nil {
		return s.ctxErr
	}
	s.runs = append(s.runs, run)
	return nil
}

// cancelAtEOF cancels the run once its document has been read completely
type cancelAtEOF struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelAtEOF) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if errors.Is(err, io.EOF) {
		c.cancel()
	}
	return n, err
}

type fakeLocker struct {
	keys []string
	err  error
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, _, _ time.Duration, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func inputs() []Input {
	return []Input{
		{Format: sources.FormatCSV, List: "uk", Reader: strings.NewReader("kind,name\nindividual,JOHN SMITH\nentity,ACME CORP\n")},
		{Format: sources.FormatCSV, List: "eu", Reader: strings.NewReader("kind,name,care_of\nindividual,JOHN SMITH,\nindividual,JANE DOE,ACME CORP\n")},
	}
}

func TestRunnerRun(t *testing.T) {
	sink := &recordingSink{}
	locker := &fakeLocker{}
	r := New(testLogger(), testSettings(),
		WithExporter(export.NewExporter(testLogger(), sink)),
		WithLocker(locker, time.Minute, 0),
	)
	assert.Nil(t, r.Last())

	result, err := r.Run(context.Background(), inputs())
	require.NoError(t, err)

	assert.Equal(t, 4, result.InputCount)
	require.Len(t, result.Entities, 3)
	assert.Same(t, result, r.Last())
	assert.Equal(t, []string{LockKey}, locker.keys)

	var john *models.Entity
	for _, e := range result.Entities {
		if e.Names.Contains("JOHN SMITH") {
			john = e
		}
	}
	require.NotNil(t, john)
	assert.Equal(t, []string{"eu", "uk"}, john.Sources.Values())

	require.Len(t, sink.runs, 1)
	assert.Equal(t, result.RunID, sink.runs[0].ID)
	assert.Equal(t, 1, sink.runs[0].ResolvedReferences)
	assert.Equal(t, models.RunStatusCompleted, sink.runs[0].Status)
	assert.Len(t, sink.entities[0], 3)
}

func TestRunnerRunWithoutInputs(t *testing.T) {
	r := New(testLogger(), testSettings())
	_, err := r.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestRunnerInputError(t *testing.T) {
	r := New(testLogger(), testSettings())
	_, err := r.Run(context.Background(), []Input{
		{Format: "pdf", List: "broken", Reader: strings.NewReader("")},
	})

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "broken", inputErr.List)
	assert.ErrorIs(t, err, sources.ErrUnknownFormat)
	assert.Nil(t, r.Last())
}

func TestRunnerLockHeldElsewhere(t *testing.T) {
	sink := &recordingSink{}
	r := New(testLogger(), testSettings(),
		WithExporter(export.NewExporter(testLogger(), sink)),
		WithLocker(&fakeLocker{err: redis.ErrLockNotAcquired}, time.Minute, 0),
	)

	_, err := r.Run(context.Background(), inputs())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, sink.runs)
}

func TestRunnerLockStoreUnavailable(t *testing.T) {
	sink := &recordingSink{}
	outage := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	r := New(testLogger(), testSettings(),
		WithExporter(export.NewExporter(testLogger(), sink)),
		WithLocker(&fakeLocker{err: outage}, time.Minute, 0),
	)

	_, err := r.Run(context.Background(), inputs())
	require.Error(t, err)
	assert.ErrorIs(t, err, outage)
	assert.NotErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, sink.runs)
}

func TestRunnerExportFailureKeepsResult(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	r := New(testLogger(), testSettings(), WithExporter(export.NewExporter(testLogger(), sink)))

	result, err := r.Run(context.Background(), inputs())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Same(t, result, r.Last())
}

func TestRunnerExportsInterruptedRun(t *testing.T) {
	sink := &contextSink{}
	r := New(testLogger(), testSettings(), WithExporter(export.NewExporter(testLogger(), sink)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doc := strings.NewReader("kind,name\nindividual,MARIA LOPEZ\nindividual,MARIO LOPEZ\nindividual,MARLA LOPEZ\n")

	result, err := r.Run(ctx, []Input{
		{Format: sources.FormatCSV, List: "uk", Reader: &cancelAtEOF{r: doc, cancel: cancel}},
	})
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.True(t, result.Interrupted)
	assert.Len(t, result.Entities, 3)
	assert.NoError(t, sink.ctxErr)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, models.RunStatusInterrupted, sink.runs[0].Status)
	assert.True(t, sink.runs[0].Interrupted())
}
