package sqlstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT 1 FROM students WHERE name_key = ? AND id > ?"

	assert.Equal(t, q, Dialect{}.Rebind(q))
	assert.Equal(t,
		"SELECT 1 FROM students WHERE name_key = $1 AND id > $2",
		Dialect{Numbered: true}.Rebind(q))
	assert.Equal(t, "DELETE FROM attendance", Dialect{Numbered: true}.Rebind("DELETE FROM attendance"))
}

func TestDialect_UniqueViolation(t *testing.T) {
	dup := errors.New("duplicate")
	d := Dialect{IsUniqueViolation: func(err error) bool { return errors.Is(err, dup) }}

	assert.True(t, d.uniqueViolation(dup))
	assert.False(t, d.uniqueViolation(errors.New("other")))
	assert.False(t, Dialect{}.uniqueViolation(dup), "no detector means no violation")
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "jiri novak", NameKey("  Jiří-Novák "))
	assert.Equal(t, "", NameKey("   "))
}
