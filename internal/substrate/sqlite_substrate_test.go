package substrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/MKhiriev/go-health-vault/internal/logger"
)

func newTestSubstrate(t *testing.T) (*sqliteSubstrate, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	sub := &sqliteSubstrate{
		DB:     &DB{DB: db, logger: l},
		logger: l,
	}
	return sub, mock, db
}

func TestGet_Success(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"value"}).AddRow(`{"a":1}`)
	mock.ExpectQuery("SELECT value").
		WithArgs("healthvault.profile").
		WillReturnRows(rows)

	got, err := sub.Get(context.Background(), "healthvault.profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("expected stored value, got %q", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectQuery("SELECT value").
		WithArgs("healthvault.missing").
		WillReturnError(sql.ErrNoRows)

	_, err := sub.Get(context.Background(), "healthvault.missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_UnexpectedDBError(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectQuery("SELECT value").
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))

	_, err := sub.Get(context.Background(), "healthvault.profile")
	if !errors.Is(err, ErrSubstrateUnavailable) {
		t.Fatalf("expected ErrSubstrateUnavailable, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO entries").
		WithArgs("healthvault.profile", `{"a":1}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := sub.Set(context.Background(), "healthvault.profile", `{"a":1}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSet_UnexpectedDBError(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("database is locked"))

	err := sub.Set(context.Background(), "healthvault.profile", "v")
	if !errors.Is(err, ErrSubstrateUnavailable) {
		t.Fatalf("expected ErrSubstrateUnavailable, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM entries").
		WithArgs("healthvault.profile").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := sub.Delete(context.Background(), "healthvault.profile"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_UnexpectedDBError(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM entries").
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("database is locked"))

	err := sub.Delete(context.Background(), "healthvault.profile")
	if !errors.Is(err, ErrSubstrateUnavailable) {
		t.Fatalf("expected ErrSubstrateUnavailable, got %v", err)
	}
}

func TestKeys_Success(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"key"}).
		AddRow("healthvault.a").
		AddRow("healthvault.b")

	mock.ExpectQuery("SELECT key").
		WithArgs(`healthvault.%`).
		WillReturnRows(rows)

	keys, err := sub.Keys(context.Background(), "healthvault.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "healthvault.a" || keys[1] != "healthvault.b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestKeys_EscapesLikeMetacharacters(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"key"})
	mock.ExpectQuery("SELECT key").
		WithArgs(`healthvault.a\_b\%%`).
		WillReturnRows(rows)

	if _, err := sub.Keys(context.Background(), "healthvault.a_b%"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKeys_UnexpectedDBError(t *testing.T) {
	sub, mock, db := newTestSubstrate(t)
	defer db.Close()

	mock.ExpectQuery("SELECT key").
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))

	_, err := sub.Keys(context.Background(), "healthvault.")
	if !errors.Is(err, ErrSubstrateUnavailable) {
		t.Fatalf("expected ErrSubstrateUnavailable, got %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain.", want: "plain."},
		{in: "a_b", want: `a\_b`},
		{in: "a%b", want: `a\%b`},
		{in: `a\b`, want: `a\\b`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if strings.ContainsAny(escapeLike("x"), `\`) {
		t.Error("clean input must not gain escape characters")
	}
}
