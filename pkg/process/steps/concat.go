package steps

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process"
)

// Concatenate stacks the tables held by tables, in order, and assigns the result to `to`.
func Concatenate(name string, to process.Sink[*frame.Table], tables []process.Source[*frame.Table], opts ...process.OpOption) *process.Op[process.None, *frame.Table] {
	return process.Assign(name, to, func(context.Context) (*frame.Table, error) {
		values := make([]*frame.Table, 0, len(tables))
		for i, ref := range tables {
			tbl, err := ref.Get()
			if err != nil {
				return nil, errors.Wrapf(err, "table %d", i)
			}
			values = append(values, tbl)
		}

		return frame.Concat(values...)
	}, opts...)
}
