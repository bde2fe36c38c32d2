package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/biblia/internal/corpus"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal([]corpus.Book{
		{Abbrev: "Gn", Chapters: [][]string{{"No princípio criou Deus os céus e a terra."}}},
		{Abbrev: "Ap", Chapters: [][]string{{"Revelação de Jesus Cristo.", "Bem-aventurado aquele que lê."}}},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), types.CorpusFileName)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newApp(t *testing.T, cfg types.Config) *App {
	t.Helper()
	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(types.Config{Backend: "postgres"}, logging.Discard())
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestNew_Defaults(t *testing.T) {
	a := newApp(t, types.Config{DataDir: t.TempDir()})
	assert.Equal(t, types.DefaultMigrationTimeout, a.Config.MigrationTimeout)
	assert.Equal(t, types.DefaultOpenTimeout, a.Config.OpenTimeout)
	assert.Equal(t, types.BackendAuto, a.Config.Backend)
}

func TestApp_ServesFromRelationalStore(t *testing.T) {
	dataDir := t.TempDir()
	a := newApp(t, types.Config{DataDir: dataDir, CorpusPath: writeCorpus(t)})
	ctx := context.Background()

	require.NoError(t, a.Service.Initialize(ctx))
	assert.Equal(t, types.BackendSQLite, a.Service.BackendKind())
	assert.FileExists(t, filepath.Join(dataDir, "biblia.db"))

	books := a.Service.ListBooks(ctx)
	require.True(t, books.Success, books.Error)
	require.Len(t, *books.Data, 2)
	assert.Equal(t, "Apocalipse", (*books.Data)[1].Name)
}

func TestApp_JSONBackend(t *testing.T) {
	dataDir := t.TempDir()
	a := newApp(t, types.Config{DataDir: dataDir, CorpusPath: writeCorpus(t), Backend: types.BackendJSON})
	ctx := context.Background()

	require.NoError(t, a.Service.Initialize(ctx))
	assert.Equal(t, types.BackendJSON, a.Service.BackendKind())
	require.True(t, a.Service.AddFavorite(ctx, 2).Success)
	assert.FileExists(t, filepath.Join(dataDir, "favorites.jsonl"))
	assert.NoFileExists(t, filepath.Join(dataDir, "biblia.db"))
}

func TestApp_Migrate(t *testing.T) {
	a := newApp(t, types.Config{DataDir: t.TempDir(), CorpusPath: writeCorpus(t)})
	ctx := context.Background()

	out, err := a.Migrate(ctx, false)
	require.NoError(t, err)
	assert.True(t, out.Migrated)
	assert.Equal(t, 3, out.Report.Verses)

	out, err = a.Migrate(ctx, false)
	require.NoError(t, err)
	assert.False(t, out.Migrated)

	out, err = a.Migrate(ctx, true)
	require.NoError(t, err)
	assert.True(t, out.Migrated)

	log, err := a.Migrations(ctx)
	require.NoError(t, err)
	assert.Len(t, log, 2)
}
