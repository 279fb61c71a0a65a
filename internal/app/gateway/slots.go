package gateway

import (
	"context"
	"errors"
	"time"
)

var errNoSlot = errors.New("no transcription slot available")

// slotPool bounds concurrent transcriptions. Requests wait at most maxWait
// for a slot and then fail fast.
type slotPool struct {
	sem     chan struct{}
	maxWait time.Duration
}

func newSlotPool(maxConcurrent int, maxWait time.Duration) *slotPool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &slotPool{
		sem:     make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// acquire returns errNoSlot when the wait budget runs out, or ctx.Err()
func (p *slotPool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	default:
	}

	if p.maxWait <= 0 {
		return errNoSlot
	}

	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()

	select {
	case p.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return errNoSlot
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *slotPool) release() {
	<-p.sem
}

func (p *slotPool) inUse() int {
	return len(p.sem)
}
