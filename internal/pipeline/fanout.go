package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Settle runs fn for every item concurrently, waits for all of them and
// returns the successful results. Failures (errors or panics) are passed to
// onErr and never abort the other items.
func Settle[In, Out any](ctx context.Context, items []In, fn func(context.Context, In) (Out, error), onErr func(In, error)) []Out {
	type slot struct {
		val Out
		ok  bool
	}
	slots := make([]slot, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				if err != nil && onErr != nil {
					onErr(item, err)
				}
			}()
			v, err := fn(ctx, item)
			if err != nil {
				return err
			}
			slots[i] = slot{val: v, ok: true}
			return nil
		})
	}
	// Errors were already reported per item.
	_ = g.Wait()

	out := make([]Out, 0, len(items))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out
}
