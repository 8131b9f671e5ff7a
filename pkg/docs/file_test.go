package docs

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yamllib "github.com/inercia/go-yaml-docs/pkg/yaml"
)

func TestWriteAll_SameLayoutAsAppend(t *testing.T) {
	t.Parallel()

	values := []record{{Name: "a", Value: 1}, {Name: "b", Value: 2}, {Name: "c", Value: 3}}

	written := tempPath(t, "written.yaml")
	require.NoError(t, WriteAll(written, values))

	appended := tempPath(t, "appended.yaml")
	for _, v := range values {
		require.NoError(t, AppendOrNew(appended, v))
	}

	assert.Equal(t, readFile(t, appended), readFile(t, written))

	got, err := ReadAll[record](written)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestWriteAll_ReplacesFile(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "docs.yaml")
	writeFile(t, path, "old: content\n")

	require.NoError(t, WriteAll(path, []record{{Name: "new"}}, WithPerm(0o600)))
	assert.Equal(t, "name: new\nvalue: 0\n", readFile(t, path))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), st.Mode().Perm())

	require.NoError(t, WriteAll[record](path, nil))
	assert.Equal(t, "", readFile(t, path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWriteAll_SerializeErrorKeepsFile(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "docs.yaml")
	writeFile(t, path, "old: content\n")

	err := WriteAll(path, []any{record{Name: "ok"}, badValue{}})
	assert.ErrorIs(t, err, yamllib.ErrSerialize)
	assert.Contains(t, err.Error(), "document 1")
	assert.Equal(t, "old: content\n", readFile(t, path))
}

func TestWriteAll_IOError(t *testing.T) {
	t.Parallel()

	err := WriteAll(filepath.Join(t.TempDir(), "missing", "docs.yaml"), []record{{Name: "a"}})
	assert.ErrorIs(t, err, ErrIO)
}

func TestReadAll_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadAll[record](tempPath(t, "missing.yaml"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadAll_StopsAtMalformedDocument(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "docs.yaml")
	writeFile(t, path, "name: a\n---\nname: [\n")

	got, err := ReadAll[record](path)
	assert.ErrorIs(t, err, yamllib.ErrDeserialize)
	assert.Nil(t, got)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "values.yaml")
	writeFile(t, path, `server:
  host: localhost
  port: 80
tags: [a, b]
---
server:
  port: 8080
tags: [c]
debug: true
---
~
`)

	merged, err := Merge(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
		"tags":   []any{"c"},
		"debug":  true,
	}, merged)
}

func TestMerge_EmptyFile(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "values.yaml")
	writeFile(t, path, "")

	merged, err := Merge(path)
	require.NoError(t, err)
	assert.Empty(t, merged)
}

func TestMerge_NotMapping(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "values.yaml")
	writeFile(t, path, "a: 1\n---\n- x\n")

	_, err := Merge(path)
	assert.ErrorIs(t, err, ErrNotMapping)
	assert.Contains(t, err.Error(), "document 1")
}

func TestMerge_AppendedOverrides(t *testing.T) {
	t.Parallel()

	path := tempPath(t, "values.yaml")
	require.NoError(t, AppendOrNew(path, map[string]any{"replicas": 1, "image": map[string]any{"tag": "v1", "repo": "app"}}))
	require.NoError(t, AppendOrNew(path, map[string]any{"image": map[string]any{"tag": "v2"}}))

	merged, err := Merge(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"replicas": 1,
		"image":    map[string]any{"tag": "v2", "repo": "app"},
	}, merged)
}
