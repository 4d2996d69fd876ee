package formats

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/octofetch/octofetch"
)

var schema = octofetch.NewSchema(
	octofetch.Field{Name: "id", Type: octofetch.Int},
	octofetch.Field{Name: "name", Type: octofetch.String.WithNullable()},
	octofetch.Field{Name: "score", Type: octofetch.Float},
	octofetch.Field{Name: "active", Type: octofetch.Boolean},
	octofetch.Field{Name: "joined", Type: octofetch.Time},
)

var rows = [][]octofetch.Value{
	{
		octofetch.NewInt(1),
		octofetch.NewString("alice"),
		octofetch.NewFloat(1.5),
		octofetch.NewBoolean(true),
		octofetch.NewTime(time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)),
	},
	{
		octofetch.NewInt(2),
		octofetch.NewNull(),
		octofetch.NewFloat(3),
		octofetch.NewBoolean(false),
		octofetch.NewTime(time.Date(2022, 5, 2, 10, 0, 0, 0, time.UTC)),
	},
}

func format(t *testing.T, name string) string {
	var buf bytes.Buffer
	f, err := New(name, &buf)
	require.NoError(t, err)

	f.SetSchema(schema)
	for _, row := range rows {
		require.NoError(t, f.Write(row))
	}
	require.NoError(t, f.Close())
	return buf.String()
}

func TestCSVFormatter(t *testing.T) {
	assert.Equal(t,
		"id,name,score,active,joined\n"+
			"1,alice,1.5,true,2022-05-01T10:00:00Z\n"+
			"2,,3,false,2022-05-02T10:00:00Z\n",
		format(t, "csv"),
	)
}

func TestJSONFormatter(t *testing.T) {
	assert.Equal(t,
		`{"id":1,"name":"alice","score":1.5,"active":true,"joined":"2022-05-01T10:00:00Z"}`+"\n"+
			`{"id":2,"name":null,"score":3,"active":false,"joined":"2022-05-02T10:00:00Z"}`+"\n",
		format(t, "json"),
	)
}

func TestTableFormatter(t *testing.T) {
	out := format(t, "table")
	for _, text := range []string{"id", "name", "joined", "alice", "<null>", "1.5", "2022-05-02T10:00:00Z"} {
		assert.Contains(t, out, text)
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("xml", &bytes.Buffer{})
	assert.Error(t, err)
}
