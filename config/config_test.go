package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "octofetch.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadConfig(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     *Config
		wantErr  bool
	}{
		{
			name:     "empty file",
			contents: "",
			want:     Default(),
		},
		{
			name: "simple parse",
			contents: `
streaming:
  channelCapacity: 16
  timeout: 5s
cache:
  ttl: 1m
routing:
  aliases:
    - pattern: logs-(.*)
      replacement: logs.$1.json
  hidden: [internal.]
dataSources:
  - name: cities
    type: csv
    config:
      path: cities.csv
  - name: users
    type: postgres
    config:
      address: localhost:5432
      user: root
      databaseName: mydb
      tableName: users
`,
			want: func() *Config {
				cfg := Default()
				cfg.Streaming.ChannelCapacity = 16
				cfg.Streaming.Timeout = 5 * time.Second
				cfg.Cache.TTL = time.Minute
				cfg.Routing.Aliases = []AliasConfig{{Pattern: "logs-(.*)", Replacement: "logs.$1.json"}}
				cfg.Routing.Hidden = []string{"internal."}
				cfg.DataSources = []DataSourceConfig{
					{
						Name:   "cities",
						Type:   "csv",
						Config: map[string]interface{}{"path": "cities.csv"},
					},
					{
						Name: "users",
						Type: "postgres",
						Config: map[string]interface{}{
							"address":      "localhost:5432",
							"user":         "root",
							"databaseName": "mydb",
							"tableName":    "users",
						},
					},
				}
				return cfg
			}(),
		},
		{
			name: "data source without config",
			contents: `
dataSources:
  - name: people
    type: memory
`,
			want: func() *Config {
				cfg := Default()
				cfg.DataSources = []DataSourceConfig{{Name: "people", Type: "memory", Config: map[string]interface{}{}}}
				return cfg
			}(),
		},
		{
			name: "duplicate data source",
			contents: `
dataSources:
  - name: people
    type: memory
  - name: people
    type: csv
`,
			wantErr: true,
		},
		{
			name:     "invalid capacity",
			contents: "streaming: {channelCapacity: 0}",
			wantErr:  true,
		},
		{
			name:     "malformed",
			contents: "streaming: [",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadConfig(writeConfig(t, tt.contents))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestConfig_GetDataSourceConfig(t *testing.T) {
	cfg := Default()
	cfg.DataSources = []DataSourceConfig{{Name: "people", Type: "memory"}}

	ds, err := cfg.GetDataSourceConfig("people")
	require.NoError(t, err)
	assert.Equal(t, "memory", ds.Type)

	_, err = cfg.GetDataSourceConfig("cities")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestGetters(t *testing.T) {
	config := map[string]interface{}{
		"path":    "people.csv",
		"rows":    []interface{}{[]interface{}{1, "alice"}},
		"columns": []interface{}{"id:int", "name:string"},
		"mixed":   []interface{}{"a", 1},
		"limit":   10,
		"header":  false,
		"timeout": "1m30s",
		"address": "db.local:6543",
		"tls": map[string]interface{}{
			"enabled": true,
		},
	}

	path, err := GetString(config, "path")
	require.NoError(t, err)
	assert.Equal(t, "people.csv", path)

	_, err = GetString(config, "limit")
	assert.Error(t, err)

	separator, err := GetString(config, "separator", WithDefault(","))
	require.NoError(t, err)
	assert.Equal(t, ",", separator)

	_, err = GetString(config, "separator")
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	rows, err := GetInterfaceList(config, "rows")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	columns, err := GetStringList(config, "columns")
	require.NoError(t, err)
	assert.Equal(t, []string{"id:int", "name:string"}, columns)

	_, err = GetStringList(config, "mixed")
	assert.Error(t, err)

	limit, err := GetInt(config, "limit")
	require.NoError(t, err)
	assert.Equal(t, 10, limit)

	header, err := GetBool(config, "header", WithDefault(true))
	require.NoError(t, err)
	assert.False(t, header)

	timeout, err := GetDuration(config, "timeout")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)

	_, err = GetDuration(config, "path")
	assert.Error(t, err)

	enabled, err := GetBool(config, "tls.enabled")
	require.NoError(t, err)
	assert.True(t, enabled)

	_, err = GetBool(config, "path.enabled")
	assert.Error(t, err)

	tls, err := GetMap(config, "tls")
	require.NoError(t, err)
	assert.Equal(t, true, tls["enabled"])

	host, port, err := GetIPAddress(config, "address")
	require.NoError(t, err)
	assert.Equal(t, "db.local", host)
	assert.Equal(t, 6543, port)

	host, port, err = GetIPAddress(config, "replica", WithDefault([]interface{}{"localhost", 5432}))
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 5432, port)

	_, _, err = GetIPAddress(map[string]interface{}{"address": "localhost"}, "address")
	assert.Error(t, err)
}
