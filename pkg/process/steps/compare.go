package steps

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process"
)

// CompareSets assigns the distinct values of a that are not in b, in the order of a.
func CompareSets[E comparable](name string, to process.Sink[[]E], a, b process.Source[[]E], opts ...process.OpOption) *process.Op[process.None, []E] {
	return process.Assign(name, to, func(context.Context) ([]E, error) {
		left, err := a.Get()
		if err != nil {
			return nil, errors.Wrap(err, "left set")
		}
		right, err := b.Get()
		if err != nil {
			return nil, errors.Wrap(err, "right set")
		}
		exclude := make(map[E]struct{}, len(right))
		for _, v := range right {
			exclude[v] = struct{}{}
		}
		out := []E{}
		for _, v := range left {
			if _, ok := exclude[v]; ok {
				continue
			}
			exclude[v] = struct{}{}
			out = append(out, v)
		}

		return out, nil
	}, opts...)
}
