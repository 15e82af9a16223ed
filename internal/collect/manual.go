package collect

import (
	"context"
	"fmt"
)

// Manual is the simplest collector: evidence typed or pasted in by an
// investigator.
type Manual struct{}

// Name returns the registry name.
func (Manual) Name() string { return "manual" }

// Version returns the collector version.
func (Manual) Version() string { return "0.1.0" }

// Extract wraps the descriptor's inline content as a single input.
func (Manual) Extract(ctx context.Context, d Descriptor) ([]Input, error) {
	if d.Content == "" {
		return nil, fmt.Errorf("manual collector: content is required")
	}
	source := d.Source
	if source == "" {
		source = "manual"
	}
	return []Input{{
		Content:  d.Content,
		Source:   source,
		Metadata: mergeMetadata(nil, d.Metadata),
	}}, nil
}
