package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string            `json:"name"`
	Retries int               `json:"retries"`
	Tags    map[string]string `json:"tags"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// comments are allowed
		name: "base",
		retries: 3,
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.local.json5"), []byte(`{name: "local"}`), 0644))

	cfg, err := ReadConfig[sample](path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
	require.Equal(t, 3, cfg.Retries)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[sample](filepath.Join(t.TempDir(), "absent.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.json5"), []byte(`{name: "root"}`), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := ReadRecursively[sample]("app.json5")
	require.NoError(t, err)
	require.Equal(t, "root", cfg.Name)
}

func TestWithDefaults(t *testing.T) {
	cfg, err := WithDefaults(sample{Name: "set"}, sample{Name: "default", Retries: 3})
	require.NoError(t, err)
	require.Equal(t, sample{Name: "set", Retries: 3}, cfg)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("conf", "tixwatch.local.json5"), LocalName(filepath.Join("conf", "tixwatch.json5")))
}
