package recognition

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/resilience"
	"github.com/GriffinCanCode/league-vision/internal/syncx"
	"github.com/GriffinCanCode/league-vision/internal/trace"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Pipeline runs strategy sets through an engine.
type Pipeline struct {
	engine  Engine
	breaker *resilience.Breaker
	cache   *FrameCache
	logger  *slog.Logger
	failing syncx.Flag
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCache reuses results for frames that have not changed.
func WithCache(c *FrameCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

func WithBreaker(b *resilience.Breaker) Option {
	return func(p *Pipeline) {
		if b != nil {
			p.breaker = b
		}
	}
}

// NewPipeline creates a pipeline. engine may be nil, in which case every run is empty.
func NewPipeline(engine Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = resilience.New(resilience.RecognitionConfig()).WithLogger(p.logger)
	}
	return p
}

// Breaker exposes the engine guard for status reporting.
func (p *Pipeline) Breaker() *resilience.Breaker { return p.breaker }

// Run recognizes img with every strategy in set and returns the best result.
// region identifies where img came from for frame caching. Run never fails:
// all errors degrade to an empty result.
func (p *Pipeline) Run(ctx context.Context, img image.Image, region vision.Rect, set StrategySet, hint LayoutHint) Result {
	if img == nil || p.engine == nil || len(set.Strategies) == 0 {
		return Result{}
	}

	ctx, span := trace.StartSpan(ctx, "recognize")
	log := trace.Logger(ctx, p.logger)
	defer span.Finish(log, "Recognition done")
	span.SetAttr("set", set.Name)

	var key *frameKey
	if p.cache != nil {
		if k, ok := p.cache.key(img, region, set.Name); ok {
			key = &k
			if res, hit := p.cache.lookup(k); hit {
				span.SetAttr("cached", true)
				return res
			}
		}
	}

	results := make([]Result, len(set.Strategies))
	for i, s := range set.Strategies {
		if ctx.Err() != nil {
			break
		}
		results[i] = p.runStrategy(ctx, log, img, s, hint)
	}

	idx := Best(results)
	if idx < 0 {
		return Result{}
	}
	best := results[idx]
	if best.Empty() {
		best = Result{}
	}
	span.SetAttr("strategy", best.Strategy)
	span.SetAttr("tokens", len(best.Tokens))

	if key != nil && ctx.Err() == nil {
		p.cache.store(*key, best)
	}
	return best
}

func (p *Pipeline) runStrategy(ctx context.Context, log *slog.Logger, img image.Image, s Strategy, hint LayoutHint) Result {
	processed, err := s.Apply(img)
	if err != nil {
		log.Debug("Preprocess failed", "strategy", s.Name(), "error", err)
		return Result{Strategy: s.Name()}
	}

	tokens, err := resilience.ExecuteWithResult(p.breaker, func() ([]vision.Token, error) {
		return p.engine.Recognize(ctx, processed, hint)
	})
	if err != nil {
		p.reportFailure(log, s.Name(), err)
		return Result{Strategy: s.Name()}
	}
	if p.failing.Clear() {
		log.Info("Recognition recovered", "strategy", s.Name())
	}
	return NewResult(s.Name(), tokens)
}

// reportFailure logs the first failure of a streak at error level; the rest at debug.
func (p *Pipeline) reportFailure(log *slog.Logger, strategy string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if errors.Is(err, resilience.ErrOpen) {
		log.Debug("Recognition skipped, engine breaker open", "strategy", strategy)
		return
	}
	if p.failing.Raise() {
		code := apperrors.CodeOCRExtractFailed
		if appErr, ok := apperrors.As(err); ok {
			code = appErr.Code
		}
		log.Error("Recognition failing, treating frames as empty", "strategy", strategy, "code", code.String(), "error", err)
		return
	}
	log.Debug("Recognition failed", "strategy", strategy, "error", err)
}
