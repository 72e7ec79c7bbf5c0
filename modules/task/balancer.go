package task

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/example/taskboard/modules/auth"
)

// ActiveCounter is the single store query the balancer is allowed to make.
type ActiveCounter interface {
	CountActiveByUser(userID string) (int64, error)
}

// Balancer picks the user with the fewest active (non-Done) tasks.
//
// It reads live counts on every call; counts across candidates are not
// snapshot-isolated, so two concurrent calls may pick the same user. That
// race is accepted: assignment is advisory load balancing and the board
// rebalances on the next call.
type Balancer struct {
	counter ActiveCounter
}

// NewBalancer creates a new Balancer over the given store.
func NewBalancer(counter ActiveCounter) *Balancer {
	return &Balancer{counter: counter}
}

// PickLeastLoaded returns the candidate with the minimum active-task count.
// Counts are fetched concurrently, then scanned in input order so that on a
// tie the first candidate wins. Given a fixed candidate ordering the result
// is deterministic; callers supply candidates ascending by user id.
func (b *Balancer) PickLeastLoaded(ctx context.Context, candidates []auth.UserInfo) (auth.UserInfo, int64, error) {
	if len(candidates) == 0 {
		return auth.UserInfo{}, 0, ErrNoCandidates
	}

	counts := make([]int64, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	for i, candidate := range candidates {
		g.Go(func() error {
			n, err := b.counter.CountActiveByUser(candidate.ID)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return auth.UserInfo{}, 0, err
	}

	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[best] {
			best = i
		}
	}
	return candidates[best], counts[best], nil
}
