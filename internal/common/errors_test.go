package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"no rows", pgx.ErrNoRows, KindNotFound},
		{"wrapped no rows", fmt.Errorf("get lease: %w", pgx.ErrNoRows), KindNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, KindValidation},
		{"check violation", &pgconn.PgError{Code: "23514"}, KindValidation},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, KindInternal},
		{"deadline", context.DeadlineExceeded, KindNetwork},
		{"app error", ForbiddenError("nope"), KindForbidden},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStatusFor(t *testing.T) {
	status, msg := StatusFor(ValidationError("rent must be positive"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "rent must be positive", msg)

	status, msg = StatusFor(errors.New("connection reset by peer on 10.0.0.3"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "The operation could not be completed", msg)

	status, _ = StatusFor(pgx.ErrNoRows)
	assert.Equal(t, http.StatusNotFound, status)

	status, msg = StatusFor(NewError(KindInternal, "leaky detail", errors.New("db down")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "The operation could not be completed", msg)
}

func TestValidateIvorianPhone(t *testing.T) {
	valid := []string{"0701020304", "+2250701020304", "07 01 02 03 04", "+225 05-12-34-56-78", "2721345678"}
	for _, p := range valid {
		assert.NoError(t, ValidateIvorianPhone(p), p)
	}

	invalid := []string{"", "0801020304", "070102030", "+33612345678", "07010203045"}
	for _, p := range invalid {
		assert.Error(t, ValidateIvorianPhone(p), p)
	}

	assert.Equal(t, "+2250701020304", NormalizePhone("07 01 02 03 04"))
	assert.Equal(t, "+2250701020304", NormalizePhone("+225 07 01 02 03 04"))
}

func TestValidateUUID(t *testing.T) {
	id, err := ValidateUUID(" 550e8400-e29b-41d4-a716-446655440000 ", "id")
	assert.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	_, err = ValidateUUID("", "id")
	assert.EqualError(t, err, "id is required")

	_, err = ValidateUUID("550e8400e29b-41d4-a716-4466554400000", "id")
	assert.Error(t, err)
}

func TestValidatePaginationParams(t *testing.T) {
	limit, offset, err := ValidatePaginationParams(0, -5)
	assert.NoError(t, err)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, _, err = ValidatePaginationParams(500, 0)
	assert.NoError(t, err)
	assert.Equal(t, 100, limit)

	_, _, err = ValidatePaginationParams(10, 200000)
	assert.Error(t, err)
}
