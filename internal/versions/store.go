package versions

import (
	"context"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/frame"
)

// VersionReader lists the version of every document of a side of the comparison.
type VersionReader interface {
	Versions(ctx context.Context) (frame.Series, error)
}

// BatchWriter receives the changed document ids, one batch at a time.
type BatchWriter interface {
	WriteBatch(ctx context.Context, ids []any) error
}

// FileStore reads a JSON object mapping document ids to their version.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Versions returns the versions sorted by document id.
func (s *FileStore) Versions(ctx context.Context) (frame.Series, error) {
	if err := ctx.Err(); err != nil {
		return frame.Series{}, errors.Wrap(err, "context done")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return frame.Series{}, errors.Wrapf(err, "unable to read %s", s.path)
	}
	var versions map[string]any
	err = json.Unmarshal(data, &versions)
	if err != nil {
		return frame.Series{}, errors.Wrapf(err, "unable to decode %s", s.path)
	}
	ids := make([]string, 0, len(versions))
	for id := range versions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return frame.SeriesOf("version", ids, versions), nil
}

func (s *FileStore) String() string {
	return "file " + s.path
}

type batchLine struct {
	Batch int   `json:"batch"`
	IDs   []any `json:"ids"`
}

// JSONLinesWriter writes one JSON line per batch.
type JSONLinesWriter struct {
	mu      sync.Mutex
	wrt     io.Writer
	batches int
}

func NewJSONLinesWriter(wrt io.Writer) *JSONLinesWriter {
	return &JSONLinesWriter{wrt: wrt}
}

func (w *JSONLinesWriter) WriteBatch(ctx context.Context, ids []any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context done")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	line, err := json.Marshal(batchLine{Batch: w.batches, IDs: ids})
	if err != nil {
		return errors.Wrap(err, "unable to encode batch")
	}
	_, err = w.wrt.Write(append(line, '\n'))
	if err != nil {
		return errors.Wrap(err, "unable to write batch")
	}
	w.batches++

	return nil
}

var (
	_ VersionReader = (*FileStore)(nil)
	_ BatchWriter   = (*JSONLinesWriter)(nil)
)
