package providerstatus

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func TestPGStoreUpdateLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := &PGStore{DB: db}
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	lastReset := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO provider_status").
		WithArgs("groq", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM provider_status WHERE provider_id = \\$1 FOR UPDATE").
		WithArgs("groq").
		WillReturnRows(sqlmock.NewRows([]string{
			"provider_id", "active", "failure_streak", "success_count", "failure_count",
			"last_success", "last_failure", "monthly_cost", "monthly_requests", "last_reset",
		}).AddRow("groq", true, 4, 10, 4, nil, nil, "1.25", 10, lastReset))
	mock.ExpectExec("UPDATE provider_status").
		WithArgs(false, 5, int64(10), int64(5), nil, sqlmock.AnyArg(), "1.25", 10, lastReset, now, "groq").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	st, err := store.Update(context.Background(), "groq", now, func(s *Status) {
		s.FailureStreak++
		s.FailureCount++
		s.LastFailure = &now
		s.Active = false
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.Active || st.FailureStreak != 5 {
		t.Fatalf("unexpected status %+v", st)
	}
	if !st.MonthlyCost.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("unexpected monthly cost %s", st.MonthlyCost)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreUpdateRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := &PGStore{DB: db}
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO provider_status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if _, err := store.Update(context.Background(), "groq", now, func(s *Status) {}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
