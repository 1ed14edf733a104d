package process

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process/model"
)

const (
	DefaultBatchSize       = 1000
	DefaultBatchMaxRetries = 25
)

// BatchFunc splits a subject into batches of at most size elements.
type BatchFunc[I, B any] func(subject I, size int) ([]B, error)

// RetryRecord tracks a failed batch waiting in the retry queue.
type RetryRecord struct {
	Batch any
	// Index is the 0-based position of the batch in the first pass.
	Index int
	// Try is the number of retries already made for the batch.
	Try int
}

type batchConfig struct {
	size       int
	maxRetries int
	onError    func(rec RetryRecord, err error)
	logger     *zap.Logger
}

type BatchOption func(cfg *batchConfig)

func BatchSize(size int) BatchOption {
	return func(cfg *batchConfig) {
		cfg.size = size
	}
}

// MaxRetries bounds the retries of every batch; a batch is attempted at most maxRetries+1 times.
func MaxRetries(maxRetries int) BatchOption {
	return func(cfg *batchConfig) {
		cfg.maxRetries = maxRetries
	}
}

// OnBatchError replaces the default hook, which logs, called once per failed attempt before the batch
// is queued again.
func OnBatchError(fn func(rec RetryRecord, err error)) BatchOption {
	return func(cfg *batchConfig) {
		cfg.onError = fn
	}
}

func BatchLogger(logger *zap.Logger) BatchOption {
	return func(cfg *batchConfig) {
		cfg.logger = logger
	}
}

// BatchProcessor runs a fixed list of steps once per batch of a subject, sharing a single batch
// reference. Failed batches are retried round robin after the first pass. An early escape raised by a
// batch ends the processor at once.
type BatchProcessor[I, B any] struct {
	name    string
	subject Source[I]
	batch   Sink[B]
	gen     BatchFunc[I, B]
	steps   []Step
	cfg     batchConfig
}

func NewBatchProcessor[I, B any](name string, subject Source[I], batch Sink[B], gen BatchFunc[I, B], steps []Step, opts ...BatchOption) *BatchProcessor[I, B] {
	cfg := batchConfig{size: DefaultBatchSize, maxRetries: DefaultBatchMaxRetries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.L()
	}
	bp := &BatchProcessor[I, B]{
		name:    name,
		subject: subject,
		batch:   batch,
		gen:     gen,
		steps:   steps,
		cfg:     cfg,
	}
	if bp.cfg.onError == nil {
		bp.cfg.onError = bp.logBatchError
	}

	return bp
}

// BatchTable processes a table in contiguous row ranges.
func BatchTable(name string, subject Source[*frame.Table], batch Sink[*frame.Table], steps []Step, opts ...BatchOption) *BatchProcessor[*frame.Table, *frame.Table] {
	return NewBatchProcessor(name, subject, batch, TableBatches, steps, opts...)
}

// BatchSeries processes a series in contiguous ranges.
func BatchSeries(name string, subject Source[frame.Series], batch Sink[frame.Series], steps []Step, opts ...BatchOption) *BatchProcessor[frame.Series, frame.Series] {
	return NewBatchProcessor(name, subject, batch, SeriesBatches, steps, opts...)
}

// BatchSlice processes a slice in contiguous ranges.
func BatchSlice[E any](name string, subject Source[[]E], batch Sink[[]E], steps []Step, opts ...BatchOption) *BatchProcessor[[]E, []E] {
	return NewBatchProcessor(name, subject, batch, SliceBatches[E], steps, opts...)
}

func (bp *BatchProcessor[I, B]) Name() string {
	return bp.name
}

func (bp *BatchProcessor[I, B]) Kind() model.StepType {
	return model.BatchStepType
}

// Preflight validates the batch size and runs the preflight of every inner step.
func (bp *BatchProcessor[I, B]) Preflight(ctx context.Context) error {
	if bp.cfg.size <= 0 {
		return errors.Wrapf(ErrInvalidBatchSize, "%s: got %d", bp.name, bp.cfg.size)
	}
	for _, step := range bp.steps {
		err := preflightOf(ctx, step)
		if err != nil {
			return errors.Wrapf(err, "%s: preflight of %s", bp.name, StepName(step))
		}
	}

	return nil
}

type pendingBatch[B any] struct {
	RetryRecord
	batch B
	err   error
}

func (bp *BatchProcessor[I, B]) Do(ctx context.Context) error {
	subject, err := bp.subject.Get()
	if err != nil {
		return errors.Wrapf(err, "%s: unable to read subject", bp.name)
	}
	batches, err := bp.gen(subject, bp.cfg.size)
	if err != nil {
		return errors.Wrapf(err, "%s: unable to generate batches", bp.name)
	}

	queue := []*pendingBatch[B]{}
	for i, batch := range batches {
		err := bp.handle(ctx, batch)
		if IsEarlyEscape(err) {
			return err
		}
		if err != nil {
			pending := &pendingBatch[B]{RetryRecord: RetryRecord{Index: i, Batch: batch}, batch: batch, err: err}
			bp.cfg.onError(pending.RetryRecord, err)
			if pending.Try >= bp.cfg.maxRetries {
				return bp.exhausted(pending)
			}
			queue = append(queue, pending)
		}
	}

	for len(queue) > 0 {
		pending := queue[0]
		queue = queue[1:]
		pending.Try++
		bp.cfg.logger.Info("retrying batch",
			zap.String("step", bp.name),
			zap.Int("batch", pending.Index),
			zap.Int("try", pending.Try),
			zap.Int("max_retries", bp.cfg.maxRetries),
		)
		err := bp.handle(ctx, pending.batch)
		if IsEarlyEscape(err) {
			return err
		}
		if err != nil {
			pending.err = err
			bp.cfg.onError(pending.RetryRecord, err)
			if pending.Try >= bp.cfg.maxRetries {
				return bp.exhausted(pending)
			}
			queue = append(queue, pending)
		}
	}

	bp.cfg.logger.Debug("batches done", zap.String("step", bp.name), zap.Int("batches", len(batches)))

	return nil
}

func (bp *BatchProcessor[I, B]) exhausted(pending *pendingBatch[B]) error {
	bp.cfg.logger.Error("retries exhausted for batch",
		zap.String("step", bp.name),
		zap.Int("batch", pending.Index),
		zap.Int("max_retries", bp.cfg.maxRetries),
	)

	return errors.Wrapf(pending.err, "%s: batch %d: retries exhausted", bp.name, pending.Index)
}

// handle runs the inner steps against batch. The batch reference is cleared whatever the outcome.
func (bp *BatchProcessor[I, B]) handle(ctx context.Context, batch B) (err error) {
	defer func() {
		err = multierr.Append(err, errors.Wrap(bp.batch.Clear(), "unable to clear batch"))
	}()
	err = bp.batch.Set(batch)
	if err != nil {
		return errors.Wrap(err, "unable to set batch")
	}

	return runSteps(ctx, bp.steps)
}

func (bp *BatchProcessor[I, B]) logBatchError(rec RetryRecord, err error) {
	bp.cfg.logger.Warn("batch failed",
		zap.String("step", bp.name),
		zap.Int("batch", rec.Index),
		zap.Int("try", rec.Try),
		zap.Error(err),
	)
}

// TableBatches slices a table into contiguous copies of at most size rows.
func TableBatches(subject *frame.Table, size int) ([]*frame.Table, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", size)
	}
	if subject == nil {
		return nil, nil
	}
	batches := make([]*frame.Table, 0, numBatches(subject.Len(), size))
	for start := 0; start < subject.Len(); start += size {
		batches = append(batches, subject.Slice(start, min(start+size, subject.Len())))
	}

	return batches, nil
}

// SeriesBatches slices a series into contiguous copies of at most size values.
func SeriesBatches(subject frame.Series, size int) ([]frame.Series, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", size)
	}
	batches := make([]frame.Series, 0, numBatches(subject.Len(), size))
	for start := 0; start < subject.Len(); start += size {
		batches = append(batches, subject.Slice(start, min(start+size, subject.Len())))
	}

	return batches, nil
}

// SliceBatches slices a slice into contiguous copies of at most size elements.
func SliceBatches[E any](subject []E, size int) ([][]E, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidBatchSize, "got %d", size)
	}
	batches := make([][]E, 0, numBatches(len(subject), size))
	for start := 0; start < len(subject); start += size {
		batches = append(batches, append([]E(nil), subject[start:min(start+size, len(subject))]...))
	}

	return batches, nil
}

func numBatches(n, size int) int {
	return (n + size - 1) / size
}

var (
	_ Step        = (*BatchProcessor[[]int, []int])(nil)
	_ Preflighter = (*BatchProcessor[[]int, []int])(nil)
)
