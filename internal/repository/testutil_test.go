package repository

import (
	"testing"
	"time"

	"agri-market/internal/testutil"

	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	return testutil.SetupPostgres(t)
}

func day(year int, month time.Month, d int) time.Time {
	return testutil.Day(year, month, d)
}

func ptr[T any](v T) *T {
	return &v
}
