// Package versions builds the pipeline comparing the document versions of a local and a remote store and
// writing the ids that changed, in batches.
package versions

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/internal/logging"
	"github.com/askiada/go-process/pkg/config"
	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/steps"
)

const (
	defaultBatchSize  = 1000
	defaultMaxRetries = 3
)

type Settings struct {
	Name       string          `json:"name" yaml:"name"`
	Local      string          `json:"local" yaml:"local"`
	Remote     string          `json:"remote" yaml:"remote"`
	How        steps.How       `json:"how" yaml:"how"`
	BatchSize  int             `json:"batch_size" yaml:"batch_size"`
	MaxRetries *int            `json:"max_retries" yaml:"max_retries"`
	RetryDelay config.Duration `json:"retry_delay" yaml:"retry_delay"`
	Output     string          `json:"output" yaml:"output"`
	Graph      string          `json:"graph" yaml:"graph"`
	Metrics    string          `json:"metrics" yaml:"metrics"`
	Trace      bool            `json:"trace" yaml:"trace"`
	SentryDSN  string          `json:"sentry_dsn" yaml:"sentry_dsn"`
	Log        logging.Config  `json:"log" yaml:"log"`
}

// Validate fills the defaults and checks the settings.
func (s *Settings) Validate() error {
	if s.Name == "" {
		s.Name = "versions"
	}
	if s.Local == "" || s.Remote == "" {
		return errors.New("local and remote are required")
	}
	if s.How == "" {
		s.How = steps.LocalFromRemote
	}
	_, err := steps.ParseHow(string(s.How))
	if err != nil {
		return err
	}
	if s.BatchSize < 0 || s.Retries() < 0 || s.RetryDelay < 0 {
		return errors.New("batch_size, max_retries and retry_delay must not be negative")
	}
	if s.BatchSize == 0 {
		s.BatchSize = defaultBatchSize
	}
	if s.MaxRetries == nil {
		retries := defaultMaxRetries
		s.MaxRetries = &retries
	}

	return nil
}

// Retries is the configured retry count. Zero disables retries.
func (s Settings) Retries() int {
	if s.MaxRetries == nil {
		return defaultMaxRetries
	}

	return *s.MaxRetries
}

type References struct {
	Local   *process.Reference[frame.Series]
	Remote  *process.Reference[frame.Series]
	Changes *process.Reference[[]any]
	Batch   *process.Reference[[]any]
	Written *process.Reference[[][]any]
}

type Clients struct {
	Local  VersionReader
	Remote VersionReader
	Writer BatchWriter
}

// Builder wires the version comparison. Output receives the changed ids.
type Builder struct {
	Output io.Writer
}

func (b *Builder) InitReferences(Settings) (*References, error) {
	return &References{
		Local:   process.NewReference(process.Named[frame.Series]("local")),
		Remote:  process.NewReference(process.Named[frame.Series]("remote")),
		Changes: process.NewReference(process.Named[[]any]("changes")),
		Batch:   process.NewReference(process.Named[[]any]("batch")),
		Written: process.NewReference(process.Named[[][]any]("written")),
	}, nil
}

func (b *Builder) InitClients(settings Settings) (*Clients, error) {
	if b.Output == nil {
		return nil, errors.Wrap(process.ErrNotInitialised, "output writer")
	}

	return &Clients{
		Local:  NewFileStore(settings.Local),
		Remote: NewFileStore(settings.Remote),
		Writer: NewJSONLinesWriter(b.Output),
	}, nil
}

func (b *Builder) InitSteps(settings Settings, refs *References, clients *Clients) ([]process.Step, error) {
	load := func(name string, ref process.Sink[frame.Series], reader VersionReader) process.Step {
		return process.Retry(process.Assign(name, ref, reader.Versions), settings.Retries(), settings.RetryDelay.Std())
	}
	write := process.NewStep("write batch", func(ctx context.Context) error {
		ids, err := refs.Batch.Get()
		if err != nil {
			return err
		}

		return clients.Writer.WriteBatch(ctx, ids)
	})

	return []process.Step{
		load("load local", refs.Local, clients.Local),
		load("load remote", refs.Remote, clients.Remote),
		steps.VersionChanges("detect changes", refs.Changes, refs.Local, refs.Remote, settings.How),
		steps.Log("changes", refs.Changes),
		steps.AssertAnyChanges("assert changes", refs.Changes),
		process.BatchSlice("write changes", refs.Changes, refs.Batch,
			[]process.Step{write, steps.Append("record batch", refs.Batch, refs.Written)},
			process.BatchSize(settings.BatchSize),
			process.MaxRetries(settings.Retries()),
		),
	}, nil
}

var _ process.Builder[Settings, *References, *Clients] = (*Builder)(nil)
