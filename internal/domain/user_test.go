package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser(" jane@example.com ", "Jane", "Smith", "$2a$10$hash", RoleUser)
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane Smith", user.FullName())
	assert.Equal(t, RoleUser, user.Role)
}

func TestNewUser_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		email string
		first string
		last  string
		hash  string
		role  Role
	}{
		{"empty email", "", "Jane", "Smith", "h", RoleUser},
		{"malformed email", "jane.example.com", "Jane", "Smith", "h", RoleUser},
		{"empty name", "jane@example.com", "", "Smith", "h", RoleUser},
		{"long last name", "jane@example.com", "Jane", strings.Repeat("x", MaxNameLength+1), "h", RoleUser},
		{"unknown role", "jane@example.com", "Jane", "Smith", "h", Role("ROOT")},
		{"missing hash", "jane@example.com", "Jane", "Smith", "", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.email, tt.first, tt.last, tt.hash, tt.role)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	valid := []string{"abcde", "Passw0rd", "0123456789abcdef"}
	for _, p := range valid {
		assert.NoError(t, ValidatePassword(p), p)
	}

	invalid := []string{"", "abcd", "0123456789abcdefg", "pass word", "pass!word", "пароль123"}
	for _, p := range invalid {
		assert.ErrorIs(t, ValidatePassword(p), ErrInvalidInput, p)
	}
}

func TestPrincipal_IsAdmin(t *testing.T) {
	assert.True(t, Principal{Email: "a@example.com", Role: RoleAdmin}.IsAdmin())
	assert.False(t, Principal{Email: "u@example.com", Role: RoleUser}.IsAdmin())
}
