package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/kozaktomas/rollcall/internal/config"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}

	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", dup)))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23514"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key")))
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t,
		"SELECT id FROM attendance WHERE name = $1 LIMIT 1",
		Dialect.Rebind("SELECT id FROM attendance WHERE name = ? LIMIT 1"))
}

func TestNewPool_RequiresURL(t *testing.T) {
	_, err := NewPool(&config.DatabaseConfig{})
	assert.Error(t, err)
}
