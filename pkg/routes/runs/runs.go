package runs

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/internal/runner"
	"github.com/Ramsey-B/nettle/pkg/companies"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
	"github.com/Ramsey-B/nettle/pkg/sources"
)

// FilesField is the multipart field carrying list documents
const FilesField = "files"

// Runner executes runs and remembers the last one
type Runner interface {
	Run(ctx context.Context, inputs []runner.Input) (*pipeline.Result, error)
	Last() *pipeline.Result
}

// RunStore reads persisted run summaries
type RunStore interface {
	LatestRun(ctx context.Context) (*models.RunSummary, error)
}

// RunResponse is the API view of a run
type RunResponse struct {
	models.RunSummary
	PreReduce *pipeline.PreReduceReport `json:"pre_reduce,omitempty"`
	Stages    []pipeline.StageReport    `json:"stages,omitempty"`
	Companies *companies.Report         `json:"companies,omitempty"`
}

// NewRunResponse builds the response for a run executed by this process
func NewRunResponse(result *pipeline.Result) RunResponse {
	return RunResponse{
		RunSummary: result.Summary(),
		PreReduce:  &result.PreReduce,
		Stages:     result.Stages,
		Companies:  result.Companies,
	}
}

// Register registers run routes
func Register(g *echo.Group) {
	g.POST("", CreateRun)
	g.GET("/latest", GetLatestRun)
}

// CreateRun runs the pipeline over the uploaded lists. Each file is one list,
// named after the file unless a "list" form value is given per file.
func CreateRun(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, r, err := ectoinject.GetContext[Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err == nil && cfg.HttpServerMaxUploadBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, int64(cfg.HttpServerMaxUploadBytes))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "expected a multipart form with list files")
	}

	files := form.File[FilesField]
	if len(files) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("no files in field %q", FilesField))
	}

	lists := form.Value["list"]
	encoding := c.FormValue("encoding")

	inputs := make([]runner.Input, 0, len(files))
	for i, header := range files {
		input, closer, err := openInput(header, encoding)
		if err != nil {
			return err
		}
		defer closer.Close()

		if i < len(lists) && lists[i] != "" {
			input.List = lists[i]
		}
		inputs = append(inputs, input)
	}

	result, err := r.Run(ctx, inputs)
	if err != nil {
		return runError(ctx, result, err)
	}

	return c.JSON(http.StatusCreated, NewRunResponse(result))
}

func openInput(header *multipart.FileHeader, encoding string) (runner.Input, multipart.File, error) {
	format, err := sources.FormatFromPath(header.Filename)
	if err != nil {
		return runner.Input{}, nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported file %q", header.Filename))
	}

	file, err := header.Open()
	if err != nil {
		return runner.Input{}, nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unreadable file %q", header.Filename))
	}

	return runner.Input{
		Format:   format,
		List:     sources.ListFromPath(header.Filename),
		Encoding: encoding,
		Reader:   file,
	}, file, nil
}

func runError(ctx context.Context, result *pipeline.Result, err error) error {
	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)

	var inputErr *runner.InputError
	switch {
	case errors.As(err, &inputErr):
		return httperror.NewHTTPError(http.StatusBadRequest, inputErr.Error())
	case errors.Is(err, runner.ErrNoInputs):
		return httperror.NewHTTPError(http.StatusBadRequest, "no lists to run")
	case errors.Is(err, runner.ErrRunInProgress):
		return httperror.NewHTTPError(http.StatusConflict, "a run is already in progress")
	case result != nil:
		if logger != nil {
			logger.WithContext(ctx).WithError(err).WithField("run_id", result.RunID).Error("Run finished but export failed")
		}
		return httperror.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("run %s finished but export failed", result.RunID))
	default:
		if logger != nil {
			logger.WithContext(ctx).WithError(err).Error("Run failed")
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "run failed")
	}
}

// GetLatestRun returns the last run of this process, falling back to the
// last persisted run
func GetLatestRun(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, r, err := ectoinject.GetContext[Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if last := r.Last(); last != nil {
		return c.JSON(http.StatusOK, NewRunResponse(last))
	}

	// no store is registered when persistence is disabled
	ctx, store, err := ectoinject.GetContext[RunStore](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no runs found")
	}

	summary, err := store.LatestRun(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RunResponse{RunSummary: *summary})
}
