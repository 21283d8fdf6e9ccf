package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"candor/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"app error", models.NewNotFoundError("Report", "r1"), false},
		{"duplicate", ErrDuplicate, false},
		{"record not found", gorm.ErrRecordNotFound, false},
		{"deadline", context.DeadlineExceeded, true},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, false},
		{"sqlite busy", errors.New("database is locked"), true},
		{"syntax", errors.New("near \"SELEC\": syntax error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: reports.content_id, reports.reporter_id")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestNotFound(t *testing.T) {
	err := notFound(gorm.ErrRecordNotFound, "Report", "r1")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	other := errors.New("boom")
	assert.Equal(t, other, notFound(other, "Report", "r1"))
}
