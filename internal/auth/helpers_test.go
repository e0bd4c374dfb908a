package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

var errDB = errors.New("db error")

var userCols = []string{"id", "email", "username", "password_hash", "full_name", "avatar_url", "created_at", "updated_at"}

const selectUser = `SELECT id, email, username, password_hash, full_name, avatar_url, created_at, updated_at FROM users`

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// climberRows returns a single stored account whose password is pass.
func climberRows(t *testing.T, pass string) *pgxmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	at := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userCols).
		AddRow("user-1", "ana@example.com", "ana", string(hash), "Ana Ruiz", "", at, at)
}

func expectSaveRefresh(mock pgxmock.PgxPoolIface, userID string) {
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func assertMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
