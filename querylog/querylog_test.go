package querylog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamadze/tamada/config"
)

func TestNewDisabledWithoutDSN(t *testing.T) {
	logger, err := New(config.QueryLogConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, logger)
}

func TestNewRejectsBadTableName(t *testing.T) {
	_, err := New(config.QueryLogConfig{DSN: "postgres://localhost/x", Table: "query_log; DROP TABLE users"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Record(Entry{Query: "ignored"})
	assert.NoError(t, logger.Close())
}

func TestValidTableName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"query_log", true},
		{"log2024", true},
		{"_private", true},
		{"", false},
		{"2log", false},
		{"Query_Log", false},
		{"log-table", false},
		{`log"; drop`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, validTableName(tt.name), tt.name)
	}
}

func TestInsertSQLShape(t *testing.T) {
	sql := insertSQL("query_log")
	assert.Contains(t, sql, "INSERT INTO query_log")
	for _, col := range []string{"id", "ts", "query", "detected_language", "target_language", "intent", "results_count", "answer_chars", "total_tokens", "processing_ms", "error_type"} {
		assert.Contains(t, sql, col)
	}
	assert.Contains(t, sql, "$11")
	assert.NotContains(t, sql, "$12")
}

func TestSchemaSQLShape(t *testing.T) {
	sql := schemaSQL("query_log")
	assert.True(t, strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS query_log"))
	assert.Contains(t, sql, "id                TEXT PRIMARY KEY")
	assert.Contains(t, sql, "ts                TIMESTAMPTZ NOT NULL")
}

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)
	ns := nullString("timeout")
	assert.True(t, ns.Valid)
	assert.Equal(t, "timeout", ns.String)
}
