package autosave

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/facturevox/facturevox/internal/models"
)

// Status of an invoice with respect to persistence.
type Status int

const (
	StatusSaved Status = iota
	StatusSaving
	StatusUnsaved
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusUnsaved:
		return "unsaved"
	default:
		return "saved"
	}
}

// Saver persists a single invoice. Saves are full overwrites, so replaying
// one is harmless.
type Saver interface {
	SaveInvoice(ctx context.Context, userID uint, inv models.Invoice) error
}

type key struct {
	userID    uint
	invoiceID string
}

type pending struct {
	inv models.Invoice
	gen uint64
}

// Coordinator is an outbox for invoice writes: edits are marked dirty and
// flushed on a fixed interval, with bounded backoff per attempt. A failed
// flush leaves the entry dirty for the next tick, so edits are never lost
// while the process lives.
type Coordinator struct {
	saver    Saver
	interval time.Duration

	mu     sync.Mutex
	dirty  map[key]pending
	status map[key]Status
	gen    uint64
}

func NewCoordinator(saver Saver, interval time.Duration) *Coordinator {
	return &Coordinator{
		saver:    saver,
		interval: interval,
		dirty:    make(map[key]pending),
		status:   make(map[key]Status),
	}
}

// Mark records the invoice as needing a save. The latest marked content
// wins, including over a flush already in flight.
func (c *Coordinator) Mark(userID uint, inv models.Invoice) {
	k := key{userID, inv.ID}
	c.mu.Lock()
	c.gen++
	c.dirty[k] = pending{inv: inv, gen: c.gen}
	c.status[k] = StatusUnsaved
	c.mu.Unlock()
}

// Status reports the persistence state of one invoice. Unknown invoices
// are saved by definition.
func (c *Coordinator) Status(userID uint, invoiceID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[key{userID, invoiceID}]
}

// Run flushes on every tick until the context is canceled, then makes one
// final flush attempt so a clean shutdown does not drop pending edits.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			c.Flush(ctx)
		}
	}
}

// Flush attempts to persist every dirty invoice. Each entry gets its own
// bounded Fibonacci backoff; a still-failing entry reverts to unsaved and
// waits for the next tick.
func (c *Coordinator) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := make(map[key]pending, len(c.dirty))
	for k, p := range c.dirty {
		batch[k] = p
		c.status[k] = StatusSaving
	}
	c.mu.Unlock()

	for k, p := range batch {
		err := retry.Do(ctx, retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond)), func(ctx context.Context) error {
			if err := c.saver.SaveInvoice(ctx, k.userID, p.inv); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})

		c.mu.Lock()
		if err != nil {
			log.Printf("autosave: invoice %s for user %d failed: %v", k.invoiceID, k.userID, err)
			c.status[k] = StatusUnsaved
			c.mu.Unlock()
			continue
		}
		// drop the entry only if it was not re-marked while saving
		if cur, ok := c.dirty[k]; ok && cur.gen == p.gen {
			delete(c.dirty, k)
			c.status[k] = StatusSaved
		} else if ok {
			c.status[k] = StatusUnsaved
		}
		c.mu.Unlock()
	}
}

// PendingCount reports how many invoices await a save.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dirty)
}
