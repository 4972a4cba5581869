package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, FileName), []byte(`{
		ecoledirecte: { identifiant: "jdupont" },
		average: { over: 10, precision: 0 },
		snapshot_db: "grades.db",
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(root, "studytools.local.json5"), []byte(`{
		ytdl: { output_dir: "videos" },
	}`), 0600)
	require.NoError(t, err)

	nested := filepath.Join(root, "cours")
	require.NoError(t, os.Mkdir(nested, 0700))
	chdir(t, nested)

	config, err := Load()
	require.NoError(t, err)
	require.Equal(t, "jdupont", config.Ecoledirecte.Identifier)
	require.Equal(t, float64(10), config.Average.Over)
	require.NotNil(t, config.Average.Precision)
	require.Equal(t, 0, *config.Average.Precision)
	require.Equal(t, "grades.db", config.SnapshotDb)
	require.Equal(t, "videos", config.Ytdl.OutputDir)
}

func TestLoadMissing(t *testing.T) {
	chdir(t, t.TempDir())
	config, err := Load()
	require.NoError(t, err)
	require.Nil(t, config.Average.Precision)
}

func TestFirst(t *testing.T) {
	require.Equal(t, "flag", First("flag", "config"))
	require.Equal(t, "config", First("", "config"))
	require.Equal(t, "", First())
}
