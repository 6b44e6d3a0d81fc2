package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientNormalizes(t *testing.T) {
	client, err := NewClient("  Ana Pérez ", " ANA@Example.COM ", " 555-0101 ", "principiante")
	require.NoError(t, err)

	assert.Equal(t, "Ana Pérez", client.Name)
	assert.Equal(t, "ana@example.com", client.Email, "email is lowercased")
	assert.Equal(t, "555-0101", client.Phone)
	assert.True(t, client.Active, "clients register active")
}

func TestNewClientValidation(t *testing.T) {
	cases := []struct {
		name      string
		argName   string
		email     string
		level     string
		wantField string
	}{
		{"short name", "A", "a@b.com", "intermedio", "nombre"},
		{"empty email", "Ana", "  ", "intermedio", "email"},
		{"email without at", "Ana", "ana.example.com", "intermedio", "email"},
		{"unknown level", "Ana", "a@b.com", "master", "nivel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.argName, tc.email, "", tc.level)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}
