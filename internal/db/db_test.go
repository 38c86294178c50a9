package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsAppliesAllStatements(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer raw.Close()

	for _, m := range migrations {
		mock.ExpectExec(m).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, runMigrations(context.Background(), sqlx.NewDb(raw, "postgres")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsOnError(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectExec(migrations[0]).WillReturnError(errors.New("permission denied"))

	err = runMigrations(context.Background(), sqlx.NewDb(raw, "postgres"))
	assert.ErrorContains(t, err, "migration 0")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsDeclareUniquenessConstraints(t *testing.T) {
	joined := ""
	for _, m := range migrations {
		joined += m
	}
	assert.Contains(t, joined, "external_id TEXT NOT NULL UNIQUE")
	assert.Contains(t, joined, "contacts_pair_key")
	assert.Contains(t, joined, "direct_key TEXT UNIQUE")
	assert.Contains(t, joined, "PRIMARY KEY (conversation_id, user_id)")
	// a 1:1 left by one side keeps is_group false with a released key
	assert.Contains(t, joined, "CHECK (direct_key IS NULL OR NOT is_group)")
}
