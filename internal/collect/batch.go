package collect

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/watchtower/internal/model"
	"github.com/ppiankov/watchtower/internal/store"
)

// BatchResult reports one descriptor's outcome.
type BatchResult struct {
	Descriptor Descriptor
	Evidence   []model.Evidence
	Err        error
}

// CollectAll extracts every descriptor concurrently, then stores the inputs
// serially in descriptor order so ledger sequence stays deterministic for a
// given descriptor list. Extraction failures do not abort the batch; they are
// reported per descriptor in the results.
func CollectAll(ctx context.Context, reg *Registry, ledger store.Ledger, descriptors []Descriptor, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]BatchResult, len(descriptors))
	extracted := make([][]Input, len(descriptors))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for i, d := range descriptors {
		g.Go(func() error {
			c, err := reg.Get(d.Collector)
			if err == nil {
				var inputs []Input
				inputs, err = c.Extract(ctx, d)
				mu.Lock()
				extracted[i] = inputs
				mu.Unlock()
			}
			if err != nil {
				mu.Lock()
				results[i].Err = err
				mu.Unlock()
			}
			return nil
		})
		results[i].Descriptor = d
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for i := range descriptors {
		if results[i].Err != nil {
			continue
		}
		c, err := reg.Get(descriptors[i].Collector)
		if err != nil {
			results[i].Err = err
			continue
		}
		tool := model.ToolIdentity{Name: c.Name(), Version: c.Version()}
		for _, in := range extracted[i] {
			ev, err := ledger.StoreEvidence(in.Content, in.Source, tool, in.Metadata)
			if err != nil {
				results[i].Err = fmt.Errorf("store %s: %w", in.Source, err)
				break
			}
			results[i].Evidence = append(results[i].Evidence, ev)
		}
	}

	return results, nil
}
