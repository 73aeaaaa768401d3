// Package scheduler implements matmake's concurrent build driver (C5): once
// every rule's staleness has been determined, it runs exactly the dirty
// ones, in dependency order, spreading independent work across a bounded
// pool of goroutines.
//
// Grounded on original_source/src/environment/threadpool.h's ThreadPool
// (addTask/notice/work loop, bailout, rate-limited progress percentage) and
// the older src/matmake.cpp driver (queue(true) only once a node is both
// dirty and has no outstanding dependency left - the exact readiness rule
// implemented here), reworked from ThreadPool's mutex-guarded std::queue
// into a channel-fed pool the way please's src/core/pool.go distributes
// build actions across goroutines, coordinated with
// golang.org/x/sync/errgroup for first-error cancellation across the pool.
package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thought-machine/matmake/src/cli/logging"
	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/graph"
)

var log = logging.Log

// Progress is called after each task completes, with the count finished so
// far and the total number of dirty tasks this run - the data needed to
// render the "[----->    ] 42%" bar from threadpool.h's printProgress.
type Progress func(done, total int)

// Scheduler runs a graph's rules with up to concurrency workers in flight.
type Scheduler struct {
	files       fsx.Handler
	concurrency int
	onProgress  Progress
}

// New builds a Scheduler. onProgress may be nil.
func New(files fsx.Handler, concurrency int, onProgress Progress) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{files: files, concurrency: concurrency, onProgress: onProgress}
}

// Run prepares every rule (in the leaves-before-roots order the graph
// package builds them in) then executes whatever turned out dirty. It
// returns the first error any rule's Work raised, matching matmake's
// bailout semantics: once one rule fails, no further rule is started, but
// rules already in flight are allowed to finish.
func (s *Scheduler) Run(ctx context.Context, rules []graph.Rule) (int, error) {
	for _, r := range rules {
		if err := r.Prepare(s.files); err != nil {
			return 0, err
		}
	}

	total := 0
	for _, r := range rules {
		if r.Node().Dirty() {
			total++
		}
	}
	if total == 0 {
		log.Notice("nothing to do")
		return 0, nil
	}
	log.Notice("running with %d threads", s.concurrency)

	ready := make(chan graph.Rule, total)
	for _, r := range initialReadyRules(rules) {
		ready <- r
	}

	var (
		mu       sync.Mutex
		finished int
		stopOnce sync.Once
	)
	allDone := make(chan struct{})
	stop := func() { stopOnce.Do(func() { close(allDone) }) }

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		group.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-allDone:
					return nil
				case r := <-ready:
					// select picks at random among ready cases, so re-check
					// for a bailout before starting the dequeued rule.
					select {
					case <-gctx.Done():
						return nil
					case <-allDone:
						return nil
					default:
					}
					out, err := r.Work(s.files)
					if err != nil {
						stop()
						return err
					}
					if out != "" {
						log.Debug("%s", out)
					}

					mu.Lock()
					finished++
					done := finished
					if s.onProgress != nil {
						s.onProgress(done, total)
					}
					mu.Unlock()

					for _, n := range r.Node().SendSubscribersNotice() {
						if n.Dirty() {
							ready <- n.Rule
						}
					}
					if done == total {
						stop()
					}
				}
			}
		})
	}
	err := group.Wait()
	mu.Lock()
	ran := finished
	mu.Unlock()
	return ran, err
}

// initialReadyRules settles every rule that turned out clean (propagating
// its completion to subscribers synchronously, as matmake.cpp's build()
// does when a node isn't dirty) and returns the dirty rules that have no
// outstanding dependency left to wait on - the initial work queue. A
// subscriber is only ever enqueued if it is itself dirty: a fresh target
// may still subscribe to a fresh dependency's completion, and settling that
// dependency must not dispatch Work on a subscriber that has nothing to do.
func initialReadyRules(rules []graph.Rule) []graph.Rule {
	var ready []graph.Rule
	for _, r := range rules {
		if !r.Node().Dirty() {
			for _, n := range r.Node().SendSubscribersNotice() {
				if n.Dirty() {
					ready = append(ready, n.Rule)
				}
			}
			continue
		}
		if len(r.Node().Dependencies()) == 0 {
			ready = append(ready, r)
		}
	}
	return ready
}
