package compiler

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	LDFlags     string
	Parallelism int
}

// Parallel compiles binaries concurrently into its own temporary directory.
type Parallel struct {
	builder     *builder
	parallelism int
}

func New(cfg Config) *Parallel {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}

	dir, err := os.MkdirTemp("", "harness-binaries")
	if err != nil {
		panic(err)
	}

	return &Parallel{
		builder:     &builder{baseDir: dir, ldFlags: cfg.LDFlags},
		parallelism: cfg.Parallelism,
	}
}

func (t *Parallel) Dir() string {
	return t.builder.baseDir
}

func (t *Parallel) Cleanup() {
	_ = os.RemoveAll(t.builder.baseDir)
}

func (t *Parallel) mustValidateWork(work Work) {
	if work.Name == "" {
		panic("work.Name not set")
	}
	if work.Target == "" {
		panic("work.Target not set")
	}
	if work.Source == "" {
		panic("work.Source not set")
	}
}

// Run builds all the work items. Items whose Result is already populated are
// skipped, so a session can share binaries across test packages.
func (t *Parallel) Run(ctx context.Context, work ...Work) error {
	workCh := make(chan Work, len(work))
	for _, w := range work {
		if w.Result != nil && *w.Result != "" {
			continue
		}
		t.mustValidateWork(w)
		workCh <- w
	}
	close(workCh)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < t.parallelism; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case w, ok := <-workCh:
					if !ok {
						return nil
					}
					if _, err := t.builder.Compile(ctx, w); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}
