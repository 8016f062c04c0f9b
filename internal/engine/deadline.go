package engine

import (
	"context"
	"time"
)

type parseOutcome struct {
	tree *Tree
	err  error
}

// ParseBounded runs lang.Parse under a wall-clock deadline. The parse runs
// in a supervised goroutine: cooperative engines observe ctx cancellation,
// while an engine stuck in a loop is abandoned past the deadline and the
// caller gets ErrTimeout without waiting for it.
//
// src копируется перед передачей воркеру: брошенная горутина может ещё
// читать вход, когда вызывающий уже мутирует буфер следующей правкой.
func ParseBounded(ctx context.Context, lang Language, src []byte, prev *Tree, timeout time.Duration) (*Tree, time.Duration, error) {
	parseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	owned := append([]byte(nil), src...)
	outcome := make(chan parseOutcome, 1)
	start := time.Now()

	go func() {
		tree, err := lang.Parse(parseCtx, owned, prev)
		outcome <- parseOutcome{tree: tree, err: err}
	}()

	select {
	case out := <-outcome:
		dur := time.Since(start)
		if out.err != nil {
			// движок мог сам отреагировать на дедлайн
			if parseCtx.Err() != nil && ctx.Err() == nil {
				return nil, dur, ErrTimeout
			}
			return nil, dur, &Error{Language: lang.Name(), Err: out.err}
		}
		return out.tree, dur, nil
	case <-parseCtx.Done():
		dur := time.Since(start)
		if ctx.Err() != nil {
			// отмена снаружи, не таймаут одной правки
			return nil, dur, ctx.Err()
		}
		return nil, dur, ErrTimeout
	}
}
