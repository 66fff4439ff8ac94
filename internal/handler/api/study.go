package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"EventPull/internal/domain/models"
	drepo "EventPull/internal/domain/repository"
	"EventPull/internal/eventstudy"
	"EventPull/internal/exporter"
	icache "EventPull/internal/service/cache"
	"EventPull/internal/service/metrics"
	"EventPull/internal/service/ratelimit"
	"EventPull/internal/usecase"
	xhttp "EventPull/pkg/http"
	xlogger "EventPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StudyHandler exposes the event-study engine over HTTP.
type StudyHandler struct {
	logger *xlogger.Logger
	runner *usecase.StudyRunner
	loader *usecase.Loader

	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter

	storage   drepo.Storage
	excel     *exporter.ExcelExporter
	exportDir string

	dateLayout   string
	ignoreErrors bool
	workers      int
}

// NewStudyHandler creates the API handler. ignoreErrors and workers are
// the batch defaults when a request leaves them unset.
func NewStudyHandler(logger *xlogger.Logger, runner *usecase.StudyRunner, loader *usecase.Loader, ignoreErrors bool, workers int) *StudyHandler {
	metrics.Register()
	return &StudyHandler{
		logger:       logger,
		runner:       runner,
		loader:       loader,
		rl:           ratelimit.New(),
		excel:        exporter.NewExcelExporter(),
		cacheTTL:     30 * time.Second,
		dateLayout:   "2006-01-02",
		ignoreErrors: ignoreErrors,
		workers:      workers,
	}
}

// SetStorage enables the stored-result query endpoint.
func (h *StudyHandler) SetStorage(st drepo.Storage) { h.storage = st }

// SetExportDir enables workbook and CSV export of results.
func (h *StudyHandler) SetExportDir(dir string) { h.exportDir = dir }

// SetCache enables response caching for single studies.
func (h *StudyHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// SetDateLayout overrides the request date parsing pattern.
func (h *StudyHandler) SetDateLayout(layout string) {
	if layout != "" {
		h.dateLayout = layout
	}
}

func (h *StudyHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/study", h.Study)
	g.POST("/batch", h.Batch)
	g.GET("/results", h.Results)
	g.GET("/health", h.Health)
}

func (h *StudyHandler) Study(c echo.Context) error {
	start := time.Now()
	endpoint := "study"
	defer func() { metrics.StudyLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.StudyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":study", 10, 5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	spec, err := req.ToSpec(h.dateLayout)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	cacheKey := "study:" + spec.Label() + ":" + string(spec.Model)
	if h.cache != nil && req.Export == "" {
		if b, ok, cerr := h.cache.GetBytes(cacheKey); cerr != nil {
			h.logger.Warn("study cache get failed", xlogger.Error(cerr))
		} else if ok {
			var cached models.StudyResponse
			if json.Unmarshal(b, &cached) == nil {
				return xhttp.SuccessResponse(c, &cached)
			}
		}
	}

	res, err := h.runner.RunSingle(c.Request().Context(), spec)
	if err != nil {
		metrics.StudyErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("study usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}

	resp := &models.StudyResponse{
		Event:       spec.Label(),
		Model:       string(spec.Model),
		Description: res.Description,
		DF:          res.Fit.DegreesOfFreedom,
		Rows:        res.Table(),
	}
	if req.Export != "" {
		name := fmt.Sprintf("study_%s_%s.%s", spec.Security, spec.EventDate.Format("2006-01-02"), req.Export)
		path, xerr := h.exportSingle(res, name, req.Export)
		if xerr != nil {
			h.logger.Warn("study export failed", xlogger.Error(xerr))
		} else {
			resp.ExportPath = path
		}
	}
	if h.cache != nil && req.Export == "" {
		if b, merr := json.Marshal(resp); merr == nil {
			if cerr := h.cache.SetBytes(cacheKey, b, h.cacheTTL); cerr != nil {
				h.logger.Warn("study cache set failed", xlogger.Error(cerr))
			}
		}
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *StudyHandler) Batch(c echo.Context) error {
	start := time.Now()
	endpoint := "batch"
	defer func() { metrics.StudyLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.BatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":batch", 4, 1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	template, err := req.Template()
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	specs, loadErrs := h.loader.FromRecords(req.Records(), template)

	ignore := h.ignoreErrors
	if req.IgnoreErrors != nil {
		ignore = *req.IgnoreErrors
	}
	workers := req.Workers
	if workers == 0 {
		workers = h.workers
	}

	res, err := h.runner.RunBatch(c.Request().Context(), specs, loadErrs, ignore, workers)
	if err != nil {
		metrics.StudyErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("batch usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}

	resp := &models.BatchResponse{
		Survivors:    len(res.Results),
		Excluded:     res.Errors,
		DF:           res.DF,
		Rows:         res.Table(),
		SignTest:     res.SignTest,
		RankTest:     res.RankTest,
		Distribution: res.CARDist,
	}
	if req.Export != "" {
		name := fmt.Sprintf("batch_%d.%s", time.Now().Unix(), req.Export)
		path, xerr := h.exportBatch(res, name, req.Export)
		if xerr != nil {
			h.logger.Warn("batch export failed", xlogger.Error(xerr))
		} else {
			resp.ExportPath = path
		}
	}
	return xhttp.SuccessResponse(c, resp)
}

// Results serves persisted per-offset rows from the result store.
func (h *StudyHandler) Results(c echo.Context) error {
	if h.storage == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no result store configured"))
	}
	security := c.QueryParam("security")
	if security == "" {
		return xhttp.BadRequestResponse(c, "security is required")
	}
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), time.Unix(0, 0))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), time.Now())
	from, to = xhttp.AlignDateRange(from, to)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 1000)

	rows, err := h.storage.Query(c.Request().Context(), security, from, to, limit)
	if err != nil {
		h.logger.Error("result query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("result query failed"))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *StudyHandler) exportSingle(res *models.SingleEventResult, name, format string) (string, error) {
	if h.exportDir == "" {
		return "", fmt.Errorf("no export directory configured")
	}
	path := filepath.Join(h.exportDir, name)
	if format == "xlsx" {
		return path, h.excel.ExportSingle(res, path)
	}
	return path, writeCSVFile(path, exporter.SingleHeader(), res.Table())
}

func (h *StudyHandler) exportBatch(res *models.MultipleEventResult, name, format string) (string, error) {
	if h.exportDir == "" {
		return "", fmt.Errorf("no export directory configured")
	}
	path := filepath.Join(h.exportDir, name)
	if format == "xlsx" {
		return path, h.excel.ExportBatch(res, path)
	}
	return path, writeCSVFile(path, exporter.AggregateHeader(), res.Table())
}

func writeCSVFile(path string, header []string, rows []models.OffsetRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return exporter.WriteCSV(f, header, rows)
}

func (h *StudyHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// appError maps engine failures onto transport errors so clients can
// distinguish bad input from missing data.
func appError(err error) error {
	switch eventstudy.KindOf(err) {
	case eventstudy.KindMalformedInput:
		return xhttp.BadRequestError(err.Error())
	case eventstudy.KindDateNotFound, eventstudy.KindInsufficientHistory:
		return xhttp.NotFoundError(err.Error())
	case eventstudy.KindSingularFit:
		return xhttp.NewAppError("ERR_SINGULAR_FIT", "", err.Error(), http.StatusUnprocessableEntity)
	}
	return xhttp.InternalError("study computation failed")
}
