//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/source"
	"github.com/sells-group/leadscore/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:        store.DriverSQLite,
			DatabaseURL:   filepath.Join(dir, "leads.db"),
			MaxConns:      4,
			MinConns:      1,
			RetryAttempts: 1,
			Migrate:       true,
		},
		Model: config.ModelConfig{
			Path:         filepath.Join(dir, "missing_model.json"),
			MetadataPath: filepath.Join(dir, "missing_metadata.json"),
		},
		Source: config.SourceConfig{Kind: config.SourceSheets, Delimiter: ","},
		Sheets: config.SheetsConfig{
			APIKey:        "key",
			SpreadsheetID: "sheet-id",
			Range:         "Sheet1",
			BaseURL:       "https://sheets.googleapis.com/v4",
			RateLimit:     1,
		},
		Sync:   config.SyncConfig{PredictAfterSync: true, LockTTLSecs: 60},
		Batch:  config.BatchConfig{Concurrency: 2, DefaultLimit: 10},
		Server: config.ServerConfig{Port: 8080},
	}
}

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestStoreOptions(t *testing.T) {
	c := testConfig(t)
	c.Store.RetryAttempts = 5
	opts := storeOptions(c)
	assert.Equal(t, store.DriverSQLite, opts.Driver)
	assert.Equal(t, c.Store.DatabaseURL, opts.DSN)
	assert.Equal(t, 5, opts.Retry.MaxAttempts)
	require.NotNil(t, opts.Pool)
	assert.Equal(t, int32(4), opts.Pool.MaxConns)
	assert.True(t, opts.Migrate)
}

func TestInitEnv_SQLiteWithoutModel(t *testing.T) {
	withConfig(t, testConfig(t))

	env, err := initEnv(context.Background(), config.ModeStore, false)
	require.NoError(t, err)
	defer env.Close()

	assert.False(t, store.IsUnavailable(env.Store))
	assert.False(t, env.Predictor.Classifier().Loaded())
	assert.Nil(t, env.Locker)

	res, err := env.Predictor.Process(context.Background(), model.Lead{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, model.ErrMarkerModelNotLoaded, res.Prediction.Error)
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.Store.DatabaseURL = ""
	withConfig(t, c)

	_, err := initEnv(context.Background(), config.ModeStore, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestInitEnv_BadMappingFile(t *testing.T) {
	c := testConfig(t)
	c.Model.MappingPath = filepath.Join(t.TempDir(), "nope.yaml")
	withConfig(t, c)

	_, err := initEnv(context.Background(), config.ModeStore, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load feature mapping")
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		kind     string
		location string
		want     string
	}{
		{config.SourceSheets, "", source.NameSheets},
		{config.SourceCSV, "leads.csv", source.NameCSV},
		{config.SourceXLSX, "leads.xlsx", source.NameXLSX},
		{config.SourceNotion, "", source.NameNotion},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			c := testConfig(t)
			c.Source.Kind = tt.kind
			c.Source.Location = tt.location
			c.Notion.Token = "secret"
			c.Notion.LeadDB = "db"

			src, err := newSource(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}

func TestNewSource_Unknown(t *testing.T) {
	c := testConfig(t)
	c.Source.Kind = "ftp"
	_, err := newSource(c)
	assert.Error(t, err)
}

func TestSyncJob_CSVIntoSQLite(t *testing.T) {
	c := testConfig(t)
	csvPath := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Full Name,Email,Mobile Number\n"+
			"Jane Doe,jane@example.com,555-0100\n"+
			"John Roe,john@example.com,555-0101\n"+
			",,\n",
	), 0o600))
	c.Source.Kind = config.SourceCSV
	c.Source.Location = csvPath
	withConfig(t, c)

	ctx := context.Background()
	env, err := initEnv(ctx, config.ModeSync, false)
	require.NoError(t, err)
	defer env.Close()

	job, err := newSyncJob(env, c)
	require.NoError(t, err)

	summary, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.NameCSV, summary.Source)
	assert.Equal(t, 3, summary.Result.Fetched)
	assert.Equal(t, 2, summary.Result.Inserted)
	assert.Equal(t, 1, summary.Result.Skipped)

	n, err := env.Store.Count(ctx, store.Query{Match: map[string]string{model.FieldSource: source.NameCSV}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second run updates the same leads.
	summary, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Result.Inserted)
	assert.Equal(t, 2, summary.Result.Updated)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"total_leads": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got["total_leads"])
}
