// Package pool provides the bounded worker pool used to fan out shelf
// and index reopening when a cupboard opens against a non-empty
// directory (spec.md §4.1's "enumerate all primary shelf DBs already
// present ... and open each"), adapted from the teacher's ants-backed
// Scheduler worker pool — the per-DB request-queue machinery the
// teacher built for live traffic isn't needed here, but the
// ants.Pool setup/teardown shape is carried over unchanged.
package pool

import (
	"runtime"
	"sync"
	"time"

	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
	"github.com/kartikbazzad/cupboard/internal/logger"
	"github.com/panjf2000/ants/v2"
)

// OpenerOptions configures an Opener, mirroring config.PoolOptions.
type OpenerOptions struct {
	Workers    int // 0 = auto-scale to NumCPU
	ExpireIdle time.Duration
	PreAlloc   bool
}

// Opener fans out a batch of independent open calls (one per shelf
// discovered during spec.md §4.1's environment enumeration) across a
// bounded ants goroutine pool, collecting every failure by name.
type Opener struct {
	antsPool   *ants.Pool
	logger     *logger.Logger
	classifier *cuperrors.Classifier
	retry      *cuperrors.RetryController
}

// NewOpener builds an Opener sized per opts.
func NewOpener(opts OpenerOptions, log *logger.Logger) (*Opener, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	expiry := opts.ExpireIdle
	if expiry <= 0 {
		expiry = time.Second
	}

	antsOpts := []ants.Option{
		ants.WithExpiryDuration(expiry),
		ants.WithPreAlloc(opts.PreAlloc),
		ants.WithPanicHandler(func(v interface{}) {
			log.Error("opener worker panic: %v", v)
		}),
	}

	antsPool, err := ants.NewPool(workers, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &Opener{
		antsPool:   antsPool,
		logger:     log,
		classifier: cuperrors.NewClassifier(),
		retry:      cuperrors.NewRetryController(),
	}, nil
}

// Run submits one task per name, waits for all to finish, and returns
// a per-name map of the tasks that failed (empty when all succeeded)
// for the caller's own rollback accounting. A task that fails with a
// transient error (lock contention, a momentary I/O hiccup) is retried
// with backoff by the shared RetryController before being recorded as
// a final failure; permanent errors (a malformed catalog entry, a bad
// name) fail on the first attempt.
func (o *Opener) Run(names []string, task func(name string) error) map[string]error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	errs := make(map[string]error, len(names))

	for _, name := range names {
		name := name
		wg.Add(1)
		submitErr := o.antsPool.Submit(func() {
			defer wg.Done()
			err := o.retry.Retry(func() error { return task(name) }, o.classifier)
			if err != nil {
				o.logger.Warn("reopen %q failed: %v", name, err)
				mu.Lock()
				errs[name] = err
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs[name] = submitErr
			mu.Unlock()
		}
	}

	wg.Wait()
	return errs
}

// Release tears down the underlying ants pool.
func (o *Opener) Release() {
	o.antsPool.Release()
}
