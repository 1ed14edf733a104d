package process

import (
	"context"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-process/pkg/process/model"
)

// Builder initialises the references, the clients and the steps of a pipeline from its settings.
//
// R and C are usually pointers to structs. Every nillable exported field left nil by InitReferences or
// InitClients fails the initialisation.
type Builder[S, R, C any] interface {
	InitReferences(settings S) (R, error)
	InitClients(settings S) (C, error)
	InitSteps(settings S, refs R, clients C) ([]Step, error)
}

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StatePreflighted
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StatePreflighted:
		return "preflighted"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type pipelineConfig struct {
	name     string
	callback Callback
	hooks    []model.PipelineOption
	logger   *zap.Logger
}

type Option func(cfg *pipelineConfig)

func WithName(name string) Option {
	return func(cfg *pipelineConfig) {
		cfg.name = name
	}
}

// WithCallback sets the callback receiving progress events. It defaults to ZapCallback.
func WithCallback(callback Callback) Option {
	return func(cfg *pipelineConfig) {
		cfg.callback = callback
	}
}

// WithHooks adds pipeline options, such as measures, drawers or tracers, observing every step.
func WithHooks(hooks ...model.PipelineOption) Option {
	return func(cfg *pipelineConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *pipelineConfig) {
		cfg.logger = logger
	}
}

// Pipeline runs a fixed list of steps, strictly in order, exactly once.
type Pipeline[S, R, C any] struct {
	cfg      pipelineConfig
	settings S
	metadata RunMetadata
	refs     R
	clients  C
	steps    []Step
	infos    []*model.StepInfo
	state    State
	escaped  *EarlyEscape
}

// New initialises a pipeline in order: references, clients, steps, then the preflight of every step.
// Any failure aborts the initialisation.
func New[S, R, C any](ctx context.Context, settings S, metadata RunMetadata, builder Builder[S, R, C], opts ...Option) (*Pipeline[S, R, C], error) {
	if builder == nil {
		return nil, ErrBuilderMustBeSet
	}
	cfg := pipelineConfig{name: metadata.Process}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.L()
	}
	if cfg.name == "" {
		cfg.name = "pipeline"
	}
	if cfg.callback == nil {
		cfg.callback = ZapCallback(cfg.logger)
	}

	pipe := &Pipeline[S, R, C]{
		cfg:      cfg,
		settings: settings,
		metadata: metadata,
		state:    StateInitializing,
	}
	logger := cfg.logger.With(zap.String("pipeline", cfg.name), zap.Stringer("run_id", metadata.RunID))
	logger.Info("initializing pipeline")

	for _, hook := range cfg.hooks {
		err := hook.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	logger.Debug("initializing references")
	refs, err := builder.InitReferences(settings)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialise references")
	}
	err = checkAssigned("reference", refs)
	if err != nil {
		return nil, err
	}
	pipe.refs = refs

	logger.Debug("initializing clients")
	clients, err := builder.InitClients(settings)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialise clients")
	}
	err = checkAssigned("client", clients)
	if err != nil {
		return nil, err
	}
	pipe.clients = clients

	logger.Debug("initializing steps")
	steps, err := builder.InitSteps(settings, refs, clients)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialise steps")
	}
	err = pipe.prepareSteps(steps)
	if err != nil {
		return nil, err
	}

	logger.Debug("performing preflight")
	err = pipe.preflight(ctx)
	if err != nil {
		return nil, err
	}
	pipe.state = StatePreflighted
	logger.Info("initialization complete", zap.Int("steps", len(steps)))

	return pipe, nil
}

func (p *Pipeline[S, R, C]) prepareSteps(steps []Step) error {
	p.steps = make([]Step, 0, len(steps))
	p.infos = make([]*model.StepInfo, 0, len(steps))
	for i, step := range steps {
		if isNil(step) {
			return errors.Wrapf(ErrStepMustBeSet, "step %d", i)
		}
		info := describe(i, step)
		for _, hook := range p.cfg.hooks {
			err := hook.PrepareStep(info)
			if err != nil {
				return errors.Wrapf(err, "unable to prepare step %s", info.Name)
			}
		}
		p.steps = append(p.steps, step)
		p.infos = append(p.infos, info)
	}

	return nil
}

func (p *Pipeline[S, R, C]) preflight(ctx context.Context) error {
	for i, step := range p.steps {
		err := preflightOf(ctx, step)
		if err != nil {
			return errors.Wrapf(err, "preflight of step %s", p.infos[i].Name)
		}
	}

	return nil
}

// Execute runs every step in order. An early escape ends the run without error, see Escaped.
// Step errors are not recovered.
func (p *Pipeline[S, R, C]) Execute(ctx context.Context) error {
	switch p.state {
	case StatePreflighted:
	case StateRunning, StateCompleted:
		return ErrAlreadyExecuted
	default:
		return errors.Wrapf(ErrNotInitialised, "pipeline is %s", p.state)
	}
	p.state = StateRunning
	defer func() {
		p.state = StateCompleted
	}()

	startTime := time.Now()
	p.cfg.callback(Event{Pipeline: p.cfg.name, Phase: PhaseStart, Snapshot: p.Snapshot()})

	runErr := p.run(ctx)
	err := multierr.Append(runErr, p.finishRun())

	p.cfg.callback(Event{Pipeline: p.cfg.name, Phase: PhaseFinish, Elapsed: time.Since(startTime), Err: err})

	return err
}

func (p *Pipeline[S, R, C]) run(ctx context.Context) error {
	for i, step := range p.steps {
		info := p.infos[i]
		p.cfg.callback(Event{Pipeline: p.cfg.name, Phase: PhaseStep, Step: info})

		stepCtx, err := p.beforeStep(ctx, info)
		if err != nil {
			return multierr.Append(err, p.afterStep(stepCtx, info, 0, err))
		}
		startTime := time.Now()
		stepErr := step.Do(stepCtx)
		elapsed := time.Since(startTime)
		hookErr := p.afterStep(stepCtx, info, elapsed, stepErr)

		if stepErr != nil {
			if errors.As(stepErr, &p.escaped) {
				p.cfg.callback(Event{Pipeline: p.cfg.name, Phase: PhaseEscaped, Step: info, Elapsed: elapsed, Err: p.escaped})

				return hookErr
			}

			return multierr.Append(errors.Wrapf(stepErr, "step %s", info.Name), hookErr)
		}
		if hookErr != nil {
			return hookErr
		}

		p.cfg.callback(Event{Pipeline: p.cfg.name, Phase: PhaseStepDone, Step: info, Elapsed: elapsed, Snapshot: p.Snapshot()})
	}

	return nil
}

func (p *Pipeline[S, R, C]) beforeStep(ctx context.Context, info *model.StepInfo) (context.Context, error) {
	for _, hook := range p.cfg.hooks {
		next, err := hook.BeforeStep(ctx, info)
		if err != nil {
			return ctx, errors.Wrapf(err, "unable to run before step %s", info.Name)
		}
		ctx = next
	}

	return ctx, nil
}

func (p *Pipeline[S, R, C]) afterStep(ctx context.Context, info *model.StepInfo, elapsed time.Duration, stepErr error) error {
	var errs error
	for _, hook := range p.cfg.hooks {
		err := hook.AfterStep(ctx, info, elapsed, stepErr)
		errs = multierr.Append(errs, errors.Wrapf(err, "unable to run after step %s", info.Name))
	}

	return errs
}

func (p *Pipeline[S, R, C]) finishRun() error {
	var errs error
	for _, hook := range p.cfg.hooks {
		err := hook.Finish()
		errs = multierr.Append(errs, errors.Wrap(err, "unable to finish pipeline option"))
	}

	return errs
}

func (p *Pipeline[S, R, C]) Name() string {
	return p.cfg.name
}

func (p *Pipeline[S, R, C]) State() State {
	return p.state
}

func (p *Pipeline[S, R, C]) Settings() S {
	return p.settings
}

func (p *Pipeline[S, R, C]) Metadata() RunMetadata {
	return p.metadata
}

func (p *Pipeline[S, R, C]) References() R {
	return p.refs
}

func (p *Pipeline[S, R, C]) Clients() C {
	return p.clients
}

// Escaped returns the early escape that ended the run, nil if the run was not escaped.
func (p *Pipeline[S, R, C]) Escaped() *EarlyEscape {
	return p.escaped
}

// Steps describes the steps of the pipeline in execution order.
func (p *Pipeline[S, R, C]) Steps() []model.StepInfo {
	infos := make([]model.StepInfo, 0, len(p.infos))
	for _, info := range p.infos {
		infos = append(infos, *info)
	}

	return infos
}

// LogSteps logs one line per step.
func (p *Pipeline[S, R, C]) LogSteps() {
	for _, info := range p.infos {
		p.cfg.logger.Info("step",
			zap.String("pipeline", p.cfg.name),
			zap.Int("index", info.Index),
			zap.String("name", info.Name),
			zap.String("type", string(info.Type)),
		)
	}
}

// Snapshot describes every reference exposed by R, keyed by field name, or by key for a map of Describer.
func (p *Pipeline[S, R, C]) Snapshot() map[string]string {
	return snapshotOf(p.refs)
}

func snapshotOf(refs any) map[string]string {
	if described, ok := refs.(map[string]Describer); ok {
		snapshot := make(map[string]string, len(described))
		for name, ref := range described {
			snapshot[name] = ref.String()
		}

		return snapshot
	}
	val := reflect.ValueOf(refs)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	snapshot := map[string]string{}
	for i := range val.NumField() {
		field := val.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		ref, ok := val.Field(i).Interface().(Describer)
		if !ok || isNil(ref) {
			continue
		}
		snapshot[field.Name] = ref.String()
	}

	return snapshot
}

// checkAssigned fails when value is nil or holds a nil exported field.
func checkAssigned(kind string, value any) error {
	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.Wrapf(ErrNotInitialised, "%ss", kind)
	}
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return errors.Wrapf(ErrNotInitialised, "%ss", kind)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	for i := range val.NumField() {
		field := val.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		if isNil(val.Field(i).Interface()) {
			return errors.Wrapf(ErrNotInitialised, "required %s %s is not assigned", kind, field.Name)
		}
	}

	return nil
}

var _ Process = (*Pipeline[any, any, any])(nil)
