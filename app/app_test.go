package app

import (
	"context"
	"testing"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/config"
	"carolinalumpers.com/clockin/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = ":memory:"
	cfg.Database.LogLevel = "silent"
	cfg.Clockin.WorkStartHour = 0
	require.NoError(t, cfg.Validate())

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	assert.Nil(t, a.Syncer)

	require.NoError(t, a.DB.Migrate(ctx))
	require.NoError(t, a.Workers.SaveWorkers(ctx, []model.Worker{
		{WorkerID: "W1", Name: "Ana Ruiz", AvailabilityStatus: "Active"},
	}))

	res := a.Controller.SubmitClockIn(ctx, clockin.Request{WorkerID: "W1"})
	require.True(t, res.Accepted, res.Message)

	again := a.Controller.SubmitClockIn(ctx, clockin.Request{WorkerID: "W1"})
	assert.Equal(t, clockin.ReasonDuplicateSubmission, again.Reason)

	records, err := a.Records.QueryRecords(ctx, "W1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["clockin_submissions_total"])
}

func TestResolveDatabase(t *testing.T) {
	driver, dsn, err := resolveDatabase(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, defaultSQLiteDSN, dsn)

	_, _, err = resolveDatabase(context.Background(), config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}
