package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expdb/internal/config"
	"expdb/internal/logger"
	"expdb/internal/output"
	"expdb/internal/prompt"
	"expdb/internal/registry"
	"expdb/internal/store"
	"expdb/internal/store/memstore"
	"expdb/internal/testutils"
)

type testApp struct {
	*App
	db     *memstore.Database
	out    *output.CaptureBuffer
	stderr *bytes.Buffer
}

func newTestApp(t *testing.T, experiments ...testutils.Experiment) *testApp {
	t.Helper()
	db := memstore.New()
	testutils.Seed(t, db, experiments...)

	out := output.NewCaptureBuffer()
	app := NewApp()
	app.Stdout = out
	stderr := &bytes.Buffer{}
	app.Stderr = stderr
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	app.Confirm = prompt.Always(false)
	app.OpenDatabase = func(context.Context, *config.Config) (store.Database, error) {
		return db, nil
	}
	return &testApp{App: app, db: db, out: out, stderr: stderr}
}

func (a *testApp) run(args ...string) error {
	base := []string{"--backend", "memory", "--format", "plain", "--env-file", ""}
	return a.Execute(context.Background(), append(base, args...))
}

func second() testutils.Experiment {
	e := testutils.SampleExperiment()
	e.ID = "43"
	e.Name = "Other"
	e.Times = []any{1.5, 2.5}
	return e
}

func TestListCommand(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment(), second())

	require.NoError(t, app.run("list"))
	assert.Equal(t, []string{"42", "43"}, app.out.Lines())
}

func TestListCommandEmpty(t *testing.T) {
	app := newTestApp(t)

	require.NoError(t, app.run("list"))
	assert.True(t, app.out.Contains("No experiments found"))
}

func TestListCommandJSON(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("list", "--format", "json"))
	assert.JSONEq(t, `{"experiment_ids": ["42"]}`, app.out.String())
}

func TestInfoCommand(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("info", "42"))
	out := app.out.String()
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "experiment name:    Test")
	assert.Contains(t, out, "time created:       06/15/2023 at 10:15:30")
	assert.Contains(t, out, "simulated run time: 100")
	assert.Contains(t, out, "description:        d")
}

func TestInfoCommandAllExperiments(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment(), second())

	require.NoError(t, app.run("info"))
	assert.True(t, app.out.Contains("Test"))
	assert.True(t, app.out.Contains("Other"))
	assert.True(t, app.out.Contains("simulated run time: 2.5"))
}

func TestInfoCommandContinuesPastFailures(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	err := app.run("info", "missing", "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Equal(t, "1 of 2 experiments failed", err.Error())

	out := app.out.String()
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "06/15/2023 at 10:15:30", "later ids are still described")
}

func TestInfoCommandJSONKeepsStdoutParseable(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	err := app.run("info", "missing", "42", "--format", "json")
	assert.Equal(t, "1 of 2 experiments failed", err.Error())

	var doc struct {
		Experiments []map[string]any `json:"experiments"`
		Failed      []failure        `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(app.out.String()), &doc))
	require.Len(t, doc.Experiments, 1)
	assert.Equal(t, "42", doc.Experiments[0]["experiment_id"])
	assert.Equal(t, []failure{{Item: "missing", Error: "experiment not found: missing"}}, doc.Failed)
	assert.Contains(t, app.stderr.String(), "missing")
}

func TestInfoCommandListingFailure(t *testing.T) {
	mock := testutils.NewMockDatabase(memstore.New())
	mock.Mock(store.ConfigurationCollection).FindErr = errors.New("boom")
	app := newTestApp(t)
	app.OpenDatabase = func(context.Context, *config.Config) (store.Database, error) {
		return mock, nil
	}

	err := app.run("info")
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	var be *batchError
	assert.False(t, errors.As(err, &be))
}

func TestInfoCommandYAML(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("info", "42", "--format", "yaml"))
	out := app.out.String()
	assert.Contains(t, out, "experiment_id: \"42\"")
	assert.Contains(t, out, "date: 06/15/2023")
	assert.Contains(t, out, "last_emit: 100")
}

func TestDeleteCommand(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment(), second())

	require.NoError(t, app.run("delete", "--yes", "43", "unknown"))
	assert.True(t, app.out.Contains("Deleted 3 record(s)"))
	assert.Len(t, testutils.All(t, app.db, store.ConfigurationCollection), 1)
	assert.Len(t, testutils.All(t, app.db, store.HistoryCollection), 1)
}

func TestDeleteCommandDeclined(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("delete", "42"))
	assert.True(t, app.out.Contains("Nothing deleted"))
	assert.Len(t, testutils.All(t, app.db, store.ConfigurationCollection), 1)
}

func TestDeleteCommandPrompts(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())
	var asked string
	app.Confirm = func(_ context.Context, msg string) (bool, error) {
		asked = msg
		return true, nil
	}

	require.NoError(t, app.run("delete", "42"))
	assert.Equal(t, "Are you sure you want to delete 1 experiment(s)?", asked)
	assert.Empty(t, testutils.All(t, app.db, store.ConfigurationCollection))
}

func TestDeleteCommandRequiresID(t *testing.T) {
	app := newTestApp(t)
	assert.Error(t, app.run("delete"))
}

func TestPurgeCommand(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment(), second())

	require.NoError(t, app.run("purge"))
	assert.Len(t, testutils.All(t, app.db, store.ConfigurationCollection), 2)

	require.NoError(t, app.run("purge", "-y"))
	assert.True(t, app.out.Contains("Deleted 5 record(s)"))
	assert.Empty(t, testutils.All(t, app.db, store.HistoryCollection))
}

func TestPurgeCommandScoped(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment(), second())

	require.NoError(t, app.run("purge", "--yes", "42"))
	assert.True(t, app.out.Contains("Deleted 2 record(s)"))
	assert.Len(t, testutils.All(t, app.db, store.ConfigurationCollection), 1)
}

func TestPurgeCommandJSON(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("purge", "--yes", "--format", "json"))
	assert.JSONEq(t, `{"purged": true, "deleted_records": 2}`, app.out.String())
}

func TestDownloadUploadCommands(t *testing.T) {
	dir := t.TempDir()
	src := newTestApp(t, testutils.SampleExperiment(), second())

	err := src.run("download", "--dir", dir, "42", "43", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.FileExists(t, filepath.Join(dir, "42.json"))
	assert.FileExists(t, filepath.Join(dir, "43.json"))
	assert.NoFileExists(t, filepath.Join(dir, "missing.json"))

	dst := newTestApp(t)
	require.NoError(t, dst.run("upload", filepath.Join(dir, "42.json"), filepath.Join(dir, "43.json")))
	assert.Equal(t, testutils.All(t, src.db, store.HistoryCollection), testutils.All(t, dst.db, store.HistoryCollection))
	assert.Equal(t, testutils.All(t, src.db, store.ConfigurationCollection), testutils.All(t, dst.db, store.ConfigurationCollection))
	assert.True(t, dst.out.Contains("Uploaded"))
}

func TestDownloadCommandRejectsUnsafeIDs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	app := newTestApp(t, testutils.SampleExperiment())

	err := app.run("download", "--dir", dir, "../escape", "..", "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrMalformedInput)
	assert.Equal(t, "2 of 3 downloads failed", err.Error())
	assert.NoFileExists(t, filepath.Join(dir, "..", "escape.json"))
	assert.FileExists(t, filepath.Join(dir, "42.json"))
}

func TestExportPath(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: "42", want: filepath.Join("out", "42.json")},
		{id: "run..2", want: filepath.Join("out", "run..2.json")},
		{id: "", wantErr: true},
		{id: "..", wantErr: true},
		{id: "a/b", wantErr: true},
		{id: `a\b`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			path, err := exportPath("out", tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, registry.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}
}

func TestUploadCommandReportsPerFile(t *testing.T) {
	dir := t.TempDir()
	app := newTestApp(t, testutils.SampleExperiment())

	existing := filepath.Join(dir, "42.json")
	require.NoError(t, app.run("download", "--dir", dir, "42"))

	fresh := second()
	freshFile := filepath.Join(dir, "43.json")
	raw, err := (&registry.ExportDocument{Data: fresh.HistoryRecords(), EnvironmentConfig: fresh.ConfigRecord()}).Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(freshFile, raw, 0o644))

	malformed := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"data": []}`), 0o644))

	app.out.Reset()
	err = app.run("upload", existing, malformed, freshFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrConflict)
	assert.ErrorIs(t, err, registry.ErrMalformedInput)
	assert.Equal(t, "2 of 3 uploads failed", err.Error())

	assert.True(t, app.out.Contains("Uploaded "+freshFile+" as 43"))
	assert.Len(t, testutils.All(t, app.db, store.ConfigurationCollection), 2)
}

func TestUploadCommandNewID(t *testing.T) {
	dir := t.TempDir()
	app := newTestApp(t, testutils.SampleExperiment())
	require.NoError(t, app.run("download", "--dir", dir, "42"))

	require.NoError(t, app.run("upload", "--new-id", filepath.Join(dir, "42.json")))
	assert.Len(t, testutils.All(t, app.db, store.ConfigurationCollection), 2)
	assert.Len(t, testutils.All(t, app.db, store.HistoryCollection), 2)
}

func TestConnectionFailure(t *testing.T) {
	app := newTestApp(t)
	app.OpenDatabase = func(context.Context, *config.Config) (store.Database, error) {
		return nil, registry.ErrConnection
	}

	err := app.run("list")
	assert.ErrorIs(t, err, registry.ErrConnection)
}

func TestInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown format", args: []string{"list", "--format", "xml"}},
		{name: "unknown backend", args: []string{"list", "--backend", "cassandra"}},
		{name: "unknown log level", args: []string{"list", "--log-level", "loud"}},
		{name: "missing config file", args: []string{"list", "--config", filepath.Join(t.TempDir(), "none.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			assert.Error(t, app.run(tt.args...))
		})
	}
}

func TestConfigFileSelectsCollections(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "expdb.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("configuration-collection: archive\n"), 0o644))

	app := newTestApp(t, testutils.SampleExperiment())
	require.NoError(t, app.run("--config", configFile, "list"))
	assert.True(t, app.out.Contains("No experiments found"))
	assert.Equal(t, "archive", app.Config.ConfigurationCollection)
}

func TestQuietSuppressesOutput(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("--quiet", "list"))
	assert.Empty(t, app.out.String())

	err := app.run("-q", "info", "missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Empty(t, app.out.String())
}

func TestLogsGoToStderr(t *testing.T) {
	app := newTestApp(t, testutils.SampleExperiment())

	require.NoError(t, app.run("--log-level", "debug", "list"))
	assert.Contains(t, app.stderr.String(), "Configuration loaded")
	assert.NotContains(t, app.out.String(), "Configuration loaded")
}

func TestVersionCommand(t *testing.T) {
	app := newTestApp(t)

	require.NoError(t, app.run("version"))
	assert.True(t, strings.HasPrefix(app.out.String(), "expdb v"))

	app.out.Reset()
	require.NoError(t, app.run("version", "--detailed"))
	assert.True(t, app.out.Contains("Go Version:"))

	app.out.Reset()
	require.NoError(t, app.run("version", "--format", "json"))
	assert.True(t, app.out.Contains(`"go_version"`))
}

func TestBatchError(t *testing.T) {
	err := &batchError{what: "downloads", failed: 1, total: 2, errs: []error{registry.ErrNotFound}}
	assert.Equal(t, "1 of 2 downloads failed", err.Error())
	assert.True(t, errors.Is(err, registry.ErrNotFound))
	assert.False(t, errors.Is(err, registry.ErrConflict))
}

func TestOpenDatabaseMemory(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Backend = config.BackendMemory

	db, err := OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpenDatabaseSQLite(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Backend = config.BackendSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "experiments.db")

	db, err := OpenDatabase(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close(context.Background())
	assert.NoError(t, db.Ping(context.Background()))
}
