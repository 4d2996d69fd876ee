package json

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

const events = `{"id": 1, "name": "login", "tags": ["a", "b"], "at": "2022-05-01T10:00:00Z"}

{"id": 2, "score": 1.5, "at": "2022-05-01T11:00:00Z"}
{"id": 3, "name": null, "score": 2, "at": "2022-05-01T12:00:00Z"}
`

func newBridge() *execution.Bridge {
	return execution.NewBridge(execution.NewWorkerPool(4))
}

func readDataset(t *testing.T, d *Dataset) []*execution.Record {
	stream, err := d.Data(context.Background())
	require.NoError(t, err)
	records, err := execution.ReadAll(context.Background(), stream)
	require.NoError(t, err)
	return records
}

func assertRecords(t *testing.T, want, got []*execution.Record) {
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "expected %s, got %s", want[i], got[i])
	}
}

func at(hour int) time.Time {
	return time.Date(2022, 5, 1, hour, 0, 0, 0, time.UTC)
}

func TestDataset_Inference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(events), 0644))

	d, err := Creator(context.Background(), "events", map[string]interface{}{"path": path}, newBridge())
	require.NoError(t, err)

	assert.Equal(t, []octofetch.Field{
		{Name: "id", Type: octofetch.Int, Role: octofetch.RoleMeasure},
		{Name: "name", Type: octofetch.String.WithNullable(), Role: octofetch.RoleMeasure},
		{Name: "tags", Type: octofetch.String.WithNullable(), Role: octofetch.RoleMeasure},
		{Name: "at", Type: octofetch.Time, Role: octofetch.RoleMeasure},
		{Name: "score", Type: octofetch.Float.WithNullable(), Role: octofetch.RoleMeasure},
	}, d.Schema().Fields)

	assertRecords(t, []*execution.Record{
		execution.NewRecordFromGo(1, "login", `["a","b"]`, at(10), nil),
		execution.NewRecordFromGo(2, nil, nil, at(11), 1.5),
		execution.NewRecordFromGo(3, nil, nil, at(12), 2.0),
	}, readDataset(t, d))

	_, err = d.SortedData(context.Background(), octofetch.Ordering{{Column: "id"}})
	assert.True(t, errors.Is(err, connectors.ErrOrderingNotSupported))
}

func TestDataset_DeclaredColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(events), 0644))

	d, err := Creator(context.Background(), "events", map[string]interface{}{
		"path":    path,
		"columns": []interface{}{"id:int:identifier", "at:string"},
	}, newBridge())
	require.NoError(t, err)

	assertRecords(t, []*execution.Record{
		execution.NewRecordFromGo(1, "2022-05-01T10:00:00Z"),
		execution.NewRecordFromGo(2, "2022-05-01T11:00:00Z"),
		execution.NewRecordFromGo(3, "2022-05-01T12:00:00Z"),
	}, readDataset(t, d))
}

func TestDataset_InvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(events), 0644))

	d, err := Creator(context.Background(), "events", map[string]interface{}{
		"path":    path,
		"columns": []interface{}{"name:string"},
	}, newBridge())
	require.NoError(t, err)

	stream, err := d.Data(context.Background())
	require.NoError(t, err)
	records, err := execution.ReadAll(context.Background(), stream)
	assert.Error(t, err)
	assert.Len(t, records, 1)
}

func TestDataset_NotAnObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2]\n"), 0644))

	_, err := Creator(context.Background(), "events", map[string]interface{}{"path": path}, newBridge())
	assert.Error(t, err)
}

func TestDataset_Remote(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	body := enc.EncodeAll([]byte(events), nil)
	require.NoError(t, enc.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Encoding", "zstd")
		w.Write(body)
	}))
	defer server.Close()

	d, err := Creator(context.Background(), "events", map[string]interface{}{
		"path":           server.URL + "/events",
		"headers":        map[string]interface{}{"X-Api-Key": "secret"},
		"requestTimeout": "5s",
		"columns":        []interface{}{"id:int"},
	}, newBridge())
	require.NoError(t, err)

	assertRecords(t, []*execution.Record{
		execution.NewRecordFromGo(1),
		execution.NewRecordFromGo(2),
		execution.NewRecordFromGo(3),
	}, readDataset(t, d))

	_, err = Creator(context.Background(), "events", map[string]interface{}{
		"path": server.URL + "/events",
	}, newBridge())
	assert.Error(t, err)
}
