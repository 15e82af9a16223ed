package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// File reads evidence from a local file. The source descriptor is the
// cleaned path, so re-collecting the same file correlates across runs.
type File struct{}

// Name returns the registry name.
func (File) Name() string { return "file" }

// Version returns the collector version.
func (File) Version() string { return "0.1.0" }

// Extract reads the file named by the descriptor source.
func (File) Extract(ctx context.Context, d Descriptor) ([]Input, error) {
	if d.Source == "" {
		return nil, fmt.Errorf("file collector: source path is required")
	}
	path := filepath.Clean(d.Source)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file collector: %w", err)
	}
	return []Input{{
		Content: string(data),
		Source:  path,
		Metadata: mergeMetadata(map[string]string{
			"size_bytes": strconv.Itoa(len(data)),
		}, d.Metadata),
	}}, nil
}
