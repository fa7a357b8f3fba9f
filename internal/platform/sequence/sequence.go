// Package sequence assigns per-parent sequence numbers to task lists and tasks.
//
// The next number is 1 + the highest number already used under the parent. Storage
// enforces uniqueness of (parent, sequence); when an insert loses a race the
// repository reports ErrTaken and Assign recomputes and retries until it wins or
// the context ends.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// ErrTaken is returned by repositories when the (parent, sequence) pair already exists.
var ErrTaken = errors.New("sequence already taken")

// Next returns the sequence that follows max. A parent with no children starts at 1.
func Next(max int) int {
	if max < 0 {
		max = 0
	}
	return max + 1
}

func newBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    time.Millisecond,
		Max:    50 * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}
}

// Assign computes the next sequence with current and inserts it with create, retrying
// with jittered backoff while create reports ErrTaken. It returns the sequence that
// was stored, or an error once ctx is done.
func Assign(ctx context.Context, current func(ctx context.Context) (int, error), create func(seq int) error) (int, error) {
	b := newBackoff()
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		max, err := current(ctx)
		if err != nil {
			return 0, err
		}
		seq := Next(max)
		err = create(seq)
		if err == nil {
			return seq, nil
		}
		if !errors.Is(err, ErrTaken) {
			return 0, err
		}

		wait := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			wait.Stop()
			return 0, fmt.Errorf("assign sequence after %d attempts: %w: %w", int(b.Attempt()), ErrTaken, ctx.Err())
		case <-wait.C:
		}
	}
}
