package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Streaming.Timeout = time.Minute
	cfg.Routing.Aliases = []config.AliasConfig{{Pattern: "staff", Replacement: "people"}}
	cfg.Routing.Hidden = []string{"internal."}
	cfg.DataSources = []config.DataSourceConfig{
		{
			Name: "people",
			Type: "memory",
			Config: map[string]interface{}{
				"columns": []interface{}{"id:int:identifier", "name:string"},
				"rows": []interface{}{
					[]interface{}{2, "bob"},
					[]interface{}{1, "alice"},
				},
			},
		},
		{
			Name: "internal.secrets",
			Type: "memory",
			Config: map[string]interface{}{
				"columns": []interface{}{"key:string"},
			},
		},
	}
	return cfg
}

func names(t *testing.T, records []*execution.Record, column int) []string {
	out := make([]string, len(records))
	for i := range records {
		out[i] = records[i].Value(column).String()
	}
	return out
}

func TestEnvironment(t *testing.T) {
	ctx := context.Background()
	env, err := newEnvironment(ctx, testConfig(), clock.WallClock)
	require.NoError(t, err)
	defer env.Close()

	dataset, err := env.connector.GetDataset(ctx, "staff")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, dataset.Schema().Names())

	records, err := readDataset(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, names(t, records, 1))

	sorted := &orderedDataset{
		ForwardingDataset: connectors.ForwardingDataset{Delegate: dataset},
		ordering:          octofetch.Ordering{{Column: "id"}},
	}
	records, err = readDataset(ctx, sorted)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names(t, records, 1))

	_, err = readDataset(ctx, dataset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.cache.Stats().Hits)

	_, err = env.connector.GetDataset(ctx, "internal.secrets")
	var notAllowed *connectors.NotAllowedError
	assert.True(t, errors.As(err, &notAllowed))

	_, err = env.connector.GetDataset(ctx, "cities")
	assert.True(t, errors.Is(err, connectors.ErrNotFound))
}

func TestEnvironment_Files(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cities.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,population\nWarsaw,1800000\nKrakow,800000\nGdansk,470000\n"), 0644))

	env, err := newEnvironment(ctx, testConfig(), clock.WallClock)
	require.NoError(t, err)
	defer env.Close()

	dataset, err := env.connector.GetDataset(ctx, path)
	require.NoError(t, err)

	records, err := readShared(ctx, &orderedDataset{
		ForwardingDataset: connectors.ForwardingDataset{Delegate: dataset},
		ordering:          octofetch.Ordering{{Column: "population"}},
	}, 3, 16)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i := range records {
		assert.Equal(t, []string{"Gdansk", "Krakow", "Warsaw"}, names(t, records[i], 0))
	}

	cfg := testConfig()
	cfg.Routing.Files = false
	noFiles, err := newEnvironment(ctx, cfg, clock.WallClock)
	require.NoError(t, err)
	defer noFiles.Close()

	_, err = noFiles.connector.GetDataset(ctx, path)
	assert.True(t, errors.Is(err, connectors.ErrNotFound))
}

func TestEnvironment_InvalidAlias(t *testing.T) {
	cfg := testConfig()
	cfg.Routing.Aliases = []config.AliasConfig{{Pattern: "people(", Replacement: "people"}}
	_, err := newEnvironment(context.Background(), cfg, clock.WallClock)
	assert.Error(t, err)
}
