package store

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_index.up.sql":   {Data: []byte("CREATE INDEX i;")},
		"m/000001_records.up.sql": {Data: []byte("CREATE TABLE t;")},
		"m/README.md":             {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "records", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE t;", migrations[0].SQL)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "index", migrations[1].Name)
}

func TestLoadMigrations_Invalid(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "no prefix",
			fsys: fstest.MapFS{"m/records.up.sql": {Data: []byte("x")}},
		},
		{
			name: "non numeric version",
			fsys: fstest.MapFS{"m/abc_records.up.sql": {Data: []byte("x")}},
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"m/000001_a.up.sql": {Data: []byte("x")},
				"m/1_b.up.sql":      {Data: []byte("y")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys, "m")
			assert.Error(t, err)
		})
	}
}
