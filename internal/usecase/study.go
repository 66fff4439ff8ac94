package usecase

import (
	"context"
	"time"

	"EventPull/internal/domain/models"
	drepo "EventPull/internal/domain/repository"
	"EventPull/internal/eventstudy"
	applogger "EventPull/pkg/logger"
)

// StudyRunner wires the statistics engine to the data sources and the
// result backend. It is the single entry point the transport layers use.
type StudyRunner struct {
	engine  *eventstudy.Engine
	returns drepo.ReturnSource
	factors drepo.FactorSource
	router  *ResultRouter
	metrics drepo.Metrics
	logger  *applogger.Logger
}

// NewStudyRunner creates a study runner. factors may be nil when no
// factor model is configured.
func NewStudyRunner(
	engine *eventstudy.Engine,
	returns drepo.ReturnSource,
	factors drepo.FactorSource,
	router *ResultRouter,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *StudyRunner {
	return &StudyRunner{
		engine:  engine,
		returns: returns,
		factors: factors,
		router:  router,
		metrics: metrics,
		logger:  logger,
	}
}

// fetchInput materializes everything one event needs from the sources.
func (r *StudyRunner) fetchInput(ctx context.Context, spec models.EventSpec) (eventstudy.StudyInput, error) {
	in := eventstudy.StudyInput{}

	security, err := r.returns.GetReturns(ctx, spec.Security, time.Time{}, time.Time{})
	if err != nil {
		return in, err
	}
	in.Security = security

	switch spec.Model {
	case models.ModelMarket:
		market, err := r.returns.GetReturns(ctx, spec.Market, time.Time{}, time.Time{})
		if err != nil {
			return in, err
		}
		in.Market = &market
	case models.ModelThreeFactor, models.ModelFiveFactor:
		if r.factors == nil {
			return in, eventstudy.WrapError(eventstudy.KindMalformedInput, nil,
				"no factor source configured for model %s", spec.Model)
		}
		factors, err := r.factors.GetFactors(ctx, spec.Model, time.Time{}, time.Time{})
		if err != nil {
			return in, err
		}
		in.Factors = &factors
	}
	return in, nil
}

// RunSingle computes one event study and delivers the result.
func (r *StudyRunner) RunSingle(ctx context.Context, spec models.EventSpec) (*models.SingleEventResult, error) {
	start := time.Now()

	in, err := r.fetchInput(ctx, spec)
	if err != nil {
		if eventstudy.KindOf(err) == "" {
			err = eventstudy.WrapError(eventstudy.KindInsufficientHistory, err,
				"series unavailable for %s", spec.Label())
		}
		r.metrics.RecordStudyFailed(failureKind(err))
		return nil, err
	}
	res, err := r.engine.Compute(spec, in)
	if err != nil {
		r.metrics.RecordStudyFailed(failureKind(err))
		r.logger.Warn("study failed",
			applogger.String("event", spec.Label()),
			applogger.Error(err))
		return nil, err
	}

	if err := r.router.Deliver(ctx, res); err != nil {
		return nil, err
	}
	r.metrics.RecordLatency("study", time.Since(start).Seconds())
	r.logger.Info("study computed",
		applogger.String("event", spec.Label()),
		applogger.String("model", string(spec.Model)),
		applogger.Float64("car", res.CAR[len(res.CAR)-1]))
	return res, nil
}

// RunBatch computes a batch of event studies, folds in load-time errors
// under the same ignore policy, and delivers the survivors.
func (r *StudyRunner) RunBatch(
	ctx context.Context,
	specs []models.EventSpec,
	loadErrors []models.EventError,
	ignoreErrors bool,
	workers int,
) (*models.MultipleEventResult, error) {
	start := time.Now()

	if len(loadErrors) > 0 && !ignoreErrors {
		first := loadErrors[0]
		return nil, eventstudy.WrapError(eventstudy.Kind(first.Kind), nil, "%s: %s", first.Event, first.Msg)
	}
	if len(specs) == 0 {
		return &models.MultipleEventResult{Errors: loadErrors}, nil
	}

	res, err := r.engine.ComputeBatch(ctx, specs, r.fetchInput, eventstudy.BatchOptions{
		IgnoreErrors: ignoreErrors,
		Workers:      workers,
	})
	if err != nil {
		r.metrics.RecordStudyFailed(failureKind(err))
		r.logger.Warn("batch failed", applogger.Error(err))
		return nil, err
	}
	res.Errors = append(loadErrors, res.Errors...)

	if err := r.router.DeliverBatch(ctx, res.Results); err != nil {
		return nil, err
	}
	r.metrics.RecordBatchSize(len(res.Results), len(res.Errors))
	r.metrics.RecordLatency("batch", time.Since(start).Seconds())
	r.logger.Info("batch computed",
		applogger.Int("events", len(specs)),
		applogger.Int("survivors", len(res.Results)),
		applogger.Int("excluded", len(res.Errors)))
	return res, nil
}

// Close releases the runner's backends and sources.
func (r *StudyRunner) Close() {
	r.router.Close()
	if r.returns != nil {
		_ = r.returns.Close()
	}
	if r.factors != nil {
		_ = r.factors.Close()
	}
}

func failureKind(err error) string {
	if kind := eventstudy.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}
