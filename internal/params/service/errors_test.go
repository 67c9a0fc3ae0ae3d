package service

import (
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyWrite(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bad conn", driver.ErrBadConn, ErrConnectionFailure},
		{"connection exception", &pgconn.PgError{Code: "08006", Message: "connection failure"}, ErrConnectionFailure},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrConnectionFailure},
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "duplicate key"}, ErrExecutionFailure},
		{"plain", errors.New("no such table: colors"), ErrExecutionFailure},
		{"invalid argument", invalidArgument("scope"), ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyWrite(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
	assert.NoError(t, classifyWrite(nil))
}

func TestClassifyRead(t *testing.T) {
	assert.ErrorIs(t, classifyRead(driver.ErrBadConn), ErrConnectionFailure)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, classifyRead(plain))
	assert.NoError(t, classifyRead(nil))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "invalid_argument", outcomeOf(invalidArgument("x")))
	assert.Equal(t, "connection_failure", outcomeOf(classifyWrite(driver.ErrBadConn)))
	assert.Equal(t, "execution_failure", outcomeOf(classifyWrite(errors.New("boom"))))
	assert.Equal(t, "error", outcomeOf(errors.New("other")))
}
