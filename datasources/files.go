package datasources

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/execution"
)

// FileHandlers map file extensions to the types of data sources reading them.
var FileHandlers = map[string]string{
	".csv":     "csv",
	".json":    "json",
	".jsonl":   "json",
	".ndjson":  "json",
	".parquet": "parquet",
}

// Files serves files referenced directly by their path or URL, with the data source type picked by extension.
type Files struct {
	connectors.ReadOnly
	creators map[string]Creator
	bridge   *execution.Bridge

	mu       sync.Mutex
	datasets map[string]*lazyDataset
}

func NewFiles(creators map[string]Creator, bridge *execution.Bridge) *Files {
	return &Files{
		creators: creators,
		bridge:   bridge,
		datasets: make(map[string]*lazyDataset),
	}
}

// fileType returns the data source type of the file, looking through compression suffixes.
func fileType(id string) (string, bool) {
	name := strings.ToLower(id)
	if strings.Contains(name, "://") {
		if i := strings.IndexAny(name, "?#"); i != -1 {
			name = name[:i]
		}
	}
	for _, suffix := range []string{".gz", ".zst"} {
		name = strings.TrimSuffix(name, suffix)
	}
	t, ok := FileHandlers[filepath.Ext(name)]
	return t, ok
}

func (f *Files) CanHandle(id string) bool {
	t, ok := fileType(id)
	if !ok {
		return false
	}
	_, ok = f.creators[t]
	return ok
}

func (f *Files) GetDataset(ctx context.Context, id string) (connectors.Dataset, error) {
	if !f.CanHandle(id) {
		return nil, errors.Wrapf(connectors.ErrNotFound, "no handler for file %s", id)
	}
	t, _ := fileType(id)

	f.mu.Lock()
	lazy, ok := f.datasets[id]
	if !ok {
		lazy = &lazyDataset{}
		lazy.config.Name = id
		lazy.config.Type = t
		lazy.config.Config = map[string]interface{}{"path": id}
		f.datasets[id] = lazy
	}
	f.mu.Unlock()

	lazy.once.Do(func() {
		lazy.dataset, lazy.err = f.creators[t](ctx, id, lazy.config.Config, f.bridge)
	})
	if lazy.err != nil {
		return nil, errors.Wrapf(lazy.err, "couldn't create %s data source for %s", t, id)
	}
	return lazy.dataset, nil
}
