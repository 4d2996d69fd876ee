package parquet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

type player struct {
	Active bool    `parquet:"active"`
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Score  float64 `parquet:"score"`
}

func writePlayers(t *testing.T, players []player) string {
	path := filepath.Join(t.TempDir(), "players.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := parquet.NewWriter(f)
	for i := range players {
		require.NoError(t, w.Write(&players[i]))
	}
	require.NoError(t, w.Close())
	return path
}

func TestDataset(t *testing.T) {
	path := writePlayers(t, []player{
		{Active: true, ID: 1, Name: "alice", Score: 1.5},
		{Active: false, ID: 2, Name: "bob", Score: 3},
	})

	d, err := Creator(context.Background(), "players", map[string]interface{}{"path": path}, execution.NewBridge(execution.NewWorkerPool(2)))
	require.NoError(t, err)

	schema := d.Schema()
	require.Len(t, schema.Fields, 4)
	for name, want := range map[string]octofetch.Type{
		"active": octofetch.Boolean,
		"id":     octofetch.Int,
		"name":   octofetch.String,
		"score":  octofetch.Float,
	} {
		i := schema.FieldIndex(name)
		require.NotEqual(t, -1, i, name)
		assert.Equal(t, want, schema.Fields[i].Type, name)
	}

	stream, err := d.Data(context.Background())
	require.NoError(t, err)
	records, err := execution.ReadAll(context.Background(), stream)
	require.NoError(t, err)
	require.Len(t, records, 2)

	get := func(rec *execution.Record, name string) octofetch.Value {
		return rec.Value(schema.FieldIndex(name))
	}
	assert.Equal(t, octofetch.NewInt(1), get(records[0], "id"))
	assert.Equal(t, octofetch.NewString("alice"), get(records[0], "name"))
	assert.Equal(t, octofetch.NewBoolean(true), get(records[0], "active"))
	assert.Equal(t, octofetch.NewFloat(1.5), get(records[0], "score"))
	assert.Equal(t, octofetch.NewInt(2), get(records[1], "id"))
	assert.Equal(t, octofetch.NewString("bob"), get(records[1], "name"))

	_, err = d.SortedData(context.Background(), octofetch.Ordering{{Column: "id"}})
	assert.True(t, errors.Is(err, connectors.ErrOrderingNotSupported))
}

func TestDataset_NotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.parquet")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,alice\n"), 0644))

	_, err := Creator(context.Background(), "players", map[string]interface{}{"path": path}, nil)
	assert.Error(t, err)

	_, err = Creator(context.Background(), "players", map[string]interface{}{}, nil)
	assert.Error(t, err)
}
