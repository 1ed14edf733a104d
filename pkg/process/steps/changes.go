package steps

import (
	"context"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process"
)

var ErrUnknownHow = errors.New("unknown comparison")

// How selects which side of a comparison the changes are taken from.
type How string

const (
	// LocalFromRemote keeps the labels of local missing from remote.
	LocalFromRemote How = "local_from_remote"
	// RemoteFromLocal keeps the labels of remote missing from local.
	RemoteFromLocal How = "remote_from_local"
	// Symmetric keeps the labels missing from either side.
	Symmetric How = "symmetric"
)

func ParseHow(s string) (How, error) {
	switch how := How(s); how {
	case LocalFromRemote, RemoteFromLocal, Symmetric:
		return how, nil
	default:
		return "", errors.Wrapf(ErrUnknownHow, "%q", s)
	}
}

func validHow(how How) func(context.Context) error {
	return func(context.Context) error {
		_, err := ParseHow(string(how))

		return err
	}
}

// IndexChanges assigns the distinct labels that differ between the indices of local and remote. Values are
// ignored, see VersionChanges.
func IndexChanges(name string, to process.Sink[[]any], local, remote process.Source[frame.Series], how How, opts ...process.OpOption) *process.Op[process.None, []any] {
	opts = append([]process.OpOption{process.WithPreflight(validHow(how))}, opts...)

	return process.Assign(name, to, func(context.Context) ([]any, error) {
		l, r, err := readPair(local, remote)
		if err != nil {
			return nil, err
		}
		changes, err := indexDifference(l.Index.Labels(), r.Index.Labels(), how)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("index changes", zap.String("step", name), zap.String("how", string(how)), zap.Int("changes", changes.len()))

		return changes.values, nil
	}, opts...)
}

// VersionChanges is IndexChanges extended with the labels of local whose value differs from the value of
// remote under the same label, or that remote is missing.
func VersionChanges(name string, to process.Sink[[]any], local, remote process.Source[frame.Series], how How, opts ...process.OpOption) *process.Op[process.None, []any] {
	opts = append([]process.OpOption{process.WithPreflight(validHow(how))}, opts...)

	return process.Assign(name, to, func(context.Context) ([]any, error) {
		l, r, err := readPair(local, remote)
		if err != nil {
			return nil, err
		}
		changes, err := indexDifference(l.Index.Labels(), r.Index.Labels(), how)
		if err != nil {
			return nil, err
		}
		indexChanges := changes.len()
		remoteValues := r.Map(l.Index.Labels())
		for i, label := range l.Index.Labels() {
			if !reflect.DeepEqual(l.Values[i], remoteValues[i]) {
				changes.add(label)
			}
		}
		zap.L().Debug("version changes",
			zap.String("step", name),
			zap.String("how", string(how)),
			zap.Int("index_changes", indexChanges),
			zap.Int("changes", changes.len()),
		)

		return changes.values, nil
	}, opts...)
}

// DetectAdditions assigns the first level labels of local missing from remote.
func DetectAdditions(name string, to process.Sink[[]any], local, remote process.Source[frame.Series], opts ...process.OpOption) *process.Op[process.None, []any] {
	return detect(name, to, local, remote, func(l, r frame.Index) ([]any, []any) {
		return firstLevel(l), firstLevel(r)
	}, opts)
}

// DetectDeletions assigns the first level labels of remote missing from local.
func DetectDeletions(name string, to process.Sink[[]any], local, remote process.Source[frame.Series], opts ...process.OpOption) *process.Op[process.None, []any] {
	return detect(name, to, local, remote, func(l, r frame.Index) ([]any, []any) {
		return firstLevel(r), firstLevel(l)
	}, opts)
}

// DetectUpdates assigns the first level label of every row of local whose full label is missing from
// remote, such as an (id, version) pair remote does not hold.
func DetectUpdates(name string, to process.Sink[[]any], local, remote process.Source[frame.Series], opts ...process.OpOption) *process.Op[process.None, []any] {
	return process.Assign(name, to, func(context.Context) ([]any, error) {
		l, r, err := readPair(local, remote)
		if err != nil {
			return nil, err
		}
		exclude := newLabelSet(r.Index.Labels())
		ids := firstLevel(l.Index)
		out := newLabelSet(nil)
		for i, label := range l.Index.Labels() {
			if !exclude.has(label) {
				out.add(ids[i])
			}
		}

		return out.values, nil
	}, opts...)
}

func detect(name string, to process.Sink[[]any], local, remote process.Source[frame.Series], sides func(l, r frame.Index) ([]any, []any), opts []process.OpOption) *process.Op[process.None, []any] {
	return process.Assign(name, to, func(context.Context) ([]any, error) {
		l, r, err := readPair(local, remote)
		if err != nil {
			return nil, err
		}
		from, exclude := sides(l.Index, r.Index)

		return difference(from, exclude).values, nil
	}, opts...)
}

func readPair(local, remote process.Source[frame.Series]) (frame.Series, frame.Series, error) {
	l, err := local.Get()
	if err != nil {
		return frame.Series{}, frame.Series{}, errors.Wrap(err, "local")
	}
	r, err := remote.Get()
	if err != nil {
		return frame.Series{}, frame.Series{}, errors.Wrap(err, "remote")
	}

	return l, r, nil
}

func indexDifference(local, remote []any, how How) (*labelSet, error) {
	switch how {
	case LocalFromRemote:
		return difference(local, remote), nil
	case RemoteFromLocal:
		return difference(remote, local), nil
	case Symmetric:
		changes := difference(local, remote)
		for _, label := range difference(remote, local).values {
			changes.add(label)
		}

		return changes, nil
	default:
		return nil, errors.Wrapf(ErrUnknownHow, "%q", how)
	}
}

func firstLevel(index frame.Index) []any {
	labels, err := index.Level(0)
	if err != nil {
		return nil
	}

	return labels
}

// labelSet is an insertion ordered set of labels.
type labelSet struct {
	seen   map[any]struct{}
	values []any
}

func newLabelSet(labels []any) *labelSet {
	set := &labelSet{seen: make(map[any]struct{}, len(labels)), values: []any{}}
	for _, label := range labels {
		set.add(label)
	}

	return set
}

func (s *labelSet) add(label any) {
	key := keyOf(label)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, label)
}

func (s *labelSet) has(label any) bool {
	_, ok := s.seen[keyOf(label)]

	return ok
}

func (s *labelSet) len() int {
	return len(s.values)
}

// difference returns the distinct labels of from missing from exclude, in the order of from.
func difference(from, exclude []any) *labelSet {
	excluded := newLabelSet(exclude)
	out := newLabelSet(nil)
	for _, label := range from {
		if !excluded.has(label) {
			out.add(label)
		}
	}

	return out
}

// keyOf makes any label usable as a map key.
func keyOf(label any) any {
	if label == nil || reflect.TypeOf(label).Comparable() {
		return label
	}

	return fmt.Sprintf("%T:%#v", label, label)
}
