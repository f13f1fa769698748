package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"waxoff/internal/ffmpeg"
	"waxoff/internal/fileutil"
	"waxoff/internal/logging"
	"waxoff/internal/loudnorm"
	"waxoff/internal/options"
)

// Invoker runs ffmpeg. *ffmpeg.Invoker satisfies it.
type Invoker interface {
	Run(ctx context.Context, args []string) (ffmpeg.Result, error)
	Locate(ctx context.Context) (string, error)
}

// Input identifies the file a job processes.
type Input struct {
	JobID string
	Path  string
}

// Runner executes the analyze, normalize, encode, verify protocol for one
// input at a time. It holds no per-job state.
type Runner struct {
	invoker   Invoker
	verifier  OutputVerifier
	logger    *slog.Logger
	newSuffix func() string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithVerifier enables deep output verification.
func WithVerifier(v OutputVerifier) RunnerOption {
	return func(r *Runner) { r.verifier = v }
}

// WithTempSuffix overrides the random temp-file disambiguator.
func WithTempSuffix(fn func() string) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.newSuffix = fn
		}
	}
}

// NewRunner constructs a Runner that drives invoker.
func NewRunner(invoker Invoker, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		invoker:   invoker,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		newSuffix: randomSuffix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// Preflight fails with ErrToolNotFound when ffmpeg cannot be resolved.
func (r *Runner) Preflight(ctx context.Context) error {
	_, err := r.invoker.Locate(ctx)
	return err
}

// Process runs every stage for in and returns the promoted output paths in
// order (.wav before .mp3). report receives phase changes; it may be nil.
// Outputs are written under temp names and renamed only after encoding and
// verification succeed, so a failed run leaves no new files behind and never
// touches outputs from an earlier run.
func (r *Runner) Process(ctx context.Context, in Input, opts options.Options, report func(Update)) (outputs []string, err error) {
	if report == nil {
		report = func(Update) {}
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	ctx = logging.WithJobID(ctx, in.JobID)
	logger := logging.WithContext(ctx, r.logger)
	suffix := r.newSuffix()
	stage := &staging{}
	defer func() {
		if err != nil {
			stage.rollback(logger)
			outputs = nil
		}
	}()

	measurements, err := r.analyze(ctx, in, opts, report)
	if err != nil {
		return nil, err
	}

	report(Update{Phase: PhaseProcessing, Progress: PhaseProcessing.Start(), Measurements: &measurements})
	tmpWAV := stage.track(TempPath(in.Path, opts, suffix, "wav"))
	if err := r.render(ctx, in.Path, tmpWAV, opts, measurements); err != nil {
		return nil, err
	}

	type pending struct{ tmp, final string }
	var staged []pending
	if opts.WantsWAV() {
		staged = append(staged, pending{tmpWAV, OutputPath(in.Path, opts, "wav")})
	}

	if opts.WantsMP3() {
		report(Update{Phase: PhaseEncoding, Progress: PhaseEncoding.Start()})
		tmpMP3 := stage.track(TempPath(in.Path, opts, suffix, "mp3"))
		if err := r.encode(ctx, tmpWAV, tmpMP3, opts); err != nil {
			return nil, err
		}
		staged = append(staged, pending{tmpMP3, OutputPath(in.Path, opts, "mp3")})
		if !opts.WantsWAV() {
			stage.discard(tmpWAV)
		}
	}

	report(Update{Phase: PhaseVerifying, Progress: PhaseVerifying.Start()})
	temps := make([]string, 0, len(staged))
	for _, p := range staged {
		temps = append(temps, p.tmp)
	}
	if err := r.verify(ctx, temps, opts); err != nil {
		return nil, err
	}

	// Nothing reaches a public name until every stage has passed.
	for _, p := range staged {
		if err := r.promote(ctx, stage, p.tmp, p.final); err != nil {
			return nil, err
		}
		outputs = append(outputs, p.final)
	}
	return outputs, nil
}

func (r *Runner) analyze(ctx context.Context, in Input, opts options.Options, report func(Update)) (loudnorm.Measurements, error) {
	report(Update{Phase: PhaseAnalyzing, Progress: PhaseAnalyzing.Start()})
	ctx = logging.WithStage(ctx, string(PhaseAnalyzing))
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("input", in.Path),
		logging.String("filter", AnalysisFilter(opts)),
	)

	result, err := r.invoker.Run(ctx, AnalysisArgs(in.Path, opts))
	if err != nil {
		return loudnorm.Measurements{}, err
	}
	m, ok := loudnorm.Parse(result.Stderr)
	if !ok {
		detail := ""
		if !result.Success() {
			detail = Tail(result.Stderr, DiagnosticTailLimit)
		}
		return loudnorm.Measurements{}, stageError(PhaseAnalyzing, ErrNoMeasurements, detail)
	}
	logger.Info("loudness measured",
		logging.String(logging.FieldEventType, "measurements"),
		logging.Float64("input_i", m.InputI),
		logging.Float64("input_tp", m.InputTP),
		logging.Float64("input_lra", m.InputLRA),
		logging.Float64("input_thresh", m.InputThresh),
		logging.Float64("target_offset", m.TargetOffset),
		logging.Int("exit_code", result.ExitCode),
	)
	return m, nil
}

func (r *Runner) render(ctx context.Context, input, tmp string, opts options.Options, m loudnorm.Measurements) error {
	ctx = logging.WithStage(ctx, string(PhaseProcessing))
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("filter", RenderFilter(opts, m)),
	)
	result, err := r.invoker.Run(ctx, RenderArgs(input, tmp, opts, m))
	if err != nil {
		return err
	}
	if !result.Success() {
		return stageError(PhaseProcessing, ErrRenderFailed, Tail(result.Stderr, DiagnosticTailLimit))
	}
	if !fileutil.FileExists(tmp) {
		return stageError(PhaseProcessing, ErrOutputNotCreated, filepath.Base(tmp))
	}
	logger.Info("stage complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", result.Elapsed),
	)
	return nil
}

func (r *Runner) encode(ctx context.Context, input, tmp string, opts options.Options) error {
	ctx = logging.WithStage(ctx, string(PhaseEncoding))
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("bitrate", opts.MP3BitrateString()),
	)
	result, err := r.invoker.Run(ctx, EncodeArgs(input, tmp, opts))
	if err != nil {
		return err
	}
	if !result.Success() {
		return stageError(PhaseEncoding, ErrEncodeFailed, Tail(result.Stderr, DiagnosticTailLimit))
	}
	if !fileutil.FileExists(tmp) {
		return stageError(PhaseEncoding, ErrOutputNotCreated, filepath.Base(tmp))
	}
	logger.Info("stage complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", result.Elapsed),
	)
	return nil
}

func (r *Runner) promote(ctx context.Context, stage *staging, tmp, final string) error {
	if err := stage.promote(tmp, final); err != nil {
		return fmt.Errorf("save output: %w", err)
	}
	logging.WithContext(ctx, r.logger).Info("output created",
		logging.String(logging.FieldEventType, "output_created"),
		logging.String("path", final),
	)
	return nil
}

func (r *Runner) verify(ctx context.Context, outputs []string, opts options.Options) error {
	ctx = logging.WithStage(ctx, string(PhaseVerifying))
	logger := logging.WithContext(ctx, r.logger)
	for _, path := range outputs {
		if err := fileutil.NonEmptyFile(path); err != nil {
			return stageError(PhaseVerifying, ErrOutputNotCreated, err.Error())
		}
		if r.verifier == nil {
			continue
		}
		if err := r.verifier.Verify(ctx, path, opts); err != nil {
			return stageError(PhaseVerifying, ErrVerifyFailed, err.Error())
		}
	}
	logger.Debug("outputs verified", logging.Int("count", len(outputs)), logging.Bool("probed", r.verifier != nil))
	return nil
}
