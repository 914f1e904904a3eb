package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	s.backoffUnit = time.Millisecond
	return s
}

func recording(name string, log *[]string, requires ...string) *Dependency {
	return &Dependency{
		Name:     name,
		Requires: requires,
		OnStart: func(context.Context) error {
			*log = append(*log, "start "+name)
			return nil
		},
		OnStop: func(context.Context) error {
			*log = append(*log, "stop "+name)
			return nil
		},
	}
}

func TestStartupOrdersDependencies(t *testing.T) {
	var log []string
	s := newTestStartup(1)
	s.AddDependency(recording("server", &log, "database", "graph"))
	s.AddDependency(recording("database", &log))
	s.AddDependency(recording("graph", &log))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start graph", "start server"}, log)
	assert.Equal(t, StartupStatusStarted, s.Status("server"))

	log = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop server", "stop graph", "stop database"}, log)
	assert.Equal(t, StartupStatusStopped, s.Status("database"))
}

func TestStartupRetries(t *testing.T) {
	calls := 0
	s := newTestStartup(3)
	s.AddDependency(&Dependency{
		Name: "database",
		OnStart: func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartupGivesUp(t *testing.T) {
	refused := errors.New("connection refused")
	s := newTestStartup(2)
	s.AddDependency(&Dependency{
		Name:    "database",
		OnStart: func(context.Context) error { return refused },
	})

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, refused)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("database"))
}

func TestStartupUnknownDependency(t *testing.T) {
	s := newTestStartup(1)
	s.AddDependency(&Dependency{Name: "server", Requires: []string{"cache"}})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "unknown dependency 'cache'")
}

func TestStartupCycle(t *testing.T) {
	s := newTestStartup(1)
	s.AddDependency(&Dependency{Name: "a", Requires: []string{"b"}})
	s.AddDependency(&Dependency{Name: "b", Requires: []string{"a"}})

	assert.ErrorContains(t, s.Start(context.Background()), "dependency cycle")
}

func TestStopSkipsUnstarted(t *testing.T) {
	var log []string
	s := newTestStartup(1)
	s.AddDependency(recording("database", &log))

	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, log)
}
