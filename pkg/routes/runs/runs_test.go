package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/internal/inject"
	"github.com/Ramsey-B/nettle/internal/middleware"
	"github.com/Ramsey-B/nettle/internal/runner"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newRunner() *runner.Runner {
	settings := pipeline.ResolveSettings(context.Background(), config.MatchSettings{Workers: "2"}, similarity.DefaultRegistry(), testLogger())
	return runner.New(testLogger(), settings)
}

func newServer(t *testing.T, r Runner, store RunStore, maxUpload int) *echo.Echo {
	t.Helper()
	container, err := inject.NewContainer(testLogger(),
		inject.Instance(r),
		inject.Instance(store),
		inject.Instance(testLogger()),
		inject.Instance(&config.Config{HttpServerMaxUploadBytes: maxUpload}),
	)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger())
	e.Use(middleware.Container(container.GetContainerID()))
	Register(e.Group("/api/v1/runs"))
	return e
}

type file struct {
	name    string
	content string
}

func uploadRequest(t *testing.T, files []file, lists ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(FilesField, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for _, list := range lists {
		require.NoError(t, w.WriteField("list", list))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	r := newRunner()
	e := newServer(t, r, nil, 1<<20)

	rec := do(e, uploadRequest(t, []file{
		{"uk.csv", "kind,name\nindividual,JOHN SMITH\nentity,ACME CORP\n"},
		{"eu.csv", "kind,name,care_of\nindividual,JOHN SMITH,\nindividual,JANE DOE,ACME CORP\n"},
	}, "uk-hmt"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, pipeline.StatusCompleted, body.Status)
	assert.Equal(t, 4, body.InputCount)
	assert.Equal(t, 3, body.EntityCount)
	assert.Equal(t, 1, body.ResolvedReferences)
	assert.Len(t, body.Stages, 2)

	require.NotNil(t, r.Last())
	sources := models.NewStringSet()
	for _, entity := range r.Last().Entities {
		sources.Union(entity.Sources)
	}
	assert.Equal(t, []string{"eu", "uk-hmt"}, sources.Values())
}

func TestCreateRunBadRequests(t *testing.T) {
	e := newServer(t, newRunner(), nil, 1<<20)

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBufferString("{}"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, do(e, req).Code)
	})

	t.Run("no files", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(e, uploadRequest(t, nil, "uk")).Code)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		rec := do(e, uploadRequest(t, []file{{"list.pdf", "%PDF"}}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body middleware.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Message, "list.pdf")
	})

	t.Run("missing name column", func(t *testing.T) {
		rec := do(e, uploadRequest(t, []file{{"uk.csv", "kind,address\nindividual,1 Main St\n"}}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type stubRunner struct {
	result *pipeline.Result
	err    error
}

func (s stubRunner) Run(context.Context, []runner.Input) (*pipeline.Result, error) {
	return s.result, s.err
}

func (s stubRunner) Last() *pipeline.Result {
	return nil
}

func TestCreateRunConflictsAndExportFailures(t *testing.T) {
	upload := []file{{"uk.csv", "name\nJOHN SMITH\n"}}

	e := newServer(t, stubRunner{err: runner.ErrRunInProgress}, nil, 0)
	assert.Equal(t, http.StatusConflict, do(e, uploadRequest(t, upload)).Code)

	e = newServer(t, stubRunner{result: &pipeline.Result{RunID: "r1"}, err: fmt.Errorf("kafka down")}, nil, 0)
	assert.Equal(t, http.StatusBadGateway, do(e, uploadRequest(t, upload)).Code)
}

type stubStore struct {
	summary *models.RunSummary
}

func (s stubStore) LatestRun(context.Context) (*models.RunSummary, error) {
	if s.summary == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "no runs found")
	}
	return s.summary, nil
}

func TestGetLatestRun(t *testing.T) {
	latest := func(e *echo.Echo) *httptest.ResponseRecorder {
		return do(e, httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil))
	}

	t.Run("nothing ran", func(t *testing.T) {
		e := newServer(t, newRunner(), nil, 0)
		assert.Equal(t, http.StatusNotFound, latest(e).Code)

		e = newServer(t, newRunner(), stubStore{}, 0)
		assert.Equal(t, http.StatusNotFound, latest(e).Code)
	})

	t.Run("persisted run", func(t *testing.T) {
		summary := &models.RunSummary{ID: "run-1", Status: models.RunStatusCompleted, CompletedAt: time.Now().UTC(), EntityCount: 7}
		e := newServer(t, newRunner(), stubStore{summary: summary}, 0)

		rec := latest(e)
		require.Equal(t, http.StatusOK, rec.Code)

		var body RunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "run-1", body.ID)
		assert.Equal(t, pipeline.StatusCompleted, body.Status)
		assert.Equal(t, 7, body.EntityCount)
		assert.Empty(t, body.Stages)
	})

	t.Run("persisted interrupted run keeps its status", func(t *testing.T) {
		summary := &models.RunSummary{ID: "run-2", Status: models.RunStatusInterrupted, EntityCount: 3}
		e := newServer(t, newRunner(), stubStore{summary: summary}, 0)

		rec := latest(e)
		require.Equal(t, http.StatusOK, rec.Code)

		var body RunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, pipeline.StatusInterrupted, body.Status)
	})

	t.Run("in process run wins", func(t *testing.T) {
		r := newRunner()
		e := newServer(t, r, stubStore{summary: &models.RunSummary{ID: "older"}}, 1<<20)
		require.Equal(t, http.StatusCreated, do(e, uploadRequest(t, []file{{"uk.csv", "name\nJOHN SMITH\n"}})).Code)

		var body RunResponse
		require.NoError(t, json.Unmarshal(latest(e).Body.Bytes(), &body))
		assert.Equal(t, r.Last().RunID, body.ID)
	})
}

func TestRunRoutesWithoutRunner(t *testing.T) {
	e := newServer(t, nil, nil, 0)

	assert.Equal(t, http.StatusInternalServerError, do(e, uploadRequest(t, []file{{"uk.csv", "name\nJOHN SMITH\n"}})).Code)
	assert.Equal(t, http.StatusInternalServerError, do(e, httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil)).Code)
}
