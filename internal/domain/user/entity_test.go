package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"admin", RoleAdmin, true},
		{"  instructor  ", RoleInstructor, true},
		{"Student", RoleStudent, true},
		{"superuser", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, shared.ErrInvalidArgument, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEmail_Normalize(t *testing.T) {
	assert.Equal(t, Email("alice@example.com"), Email("  Alice@Example.COM ").Normalize())
}

func TestEmail_IsValid(t *testing.T) {
	assert.True(t, Email("alice@example.com").IsValid())
	assert.False(t, Email("alice").IsValid())
	assert.False(t, Email("@example.com").IsValid())
	assert.False(t, Email("alice@").IsValid())
	assert.False(t, Email("alice smith@example.com").IsValid())
}

func TestNew(t *testing.T) {
	u, err := New("  Alice@Example.COM ", "Alice", RoleStudent)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, Email("alice@example.com"), u.Email, "email is normalized at construction")
	assert.True(t, u.IsStudent())
	assert.False(t, u.IsAdmin())

	_, err = New("not-an-email", "Nobody", RoleStudent)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = New("alice@example.com", "Alice", Role("OVERLORD"))
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestPasswordRoundTrip(t *testing.T) {
	u, err := New("alice@example.com", "Alice", RoleStudent)
	require.NoError(t, err)

	require.NoError(t, u.SetPassword("correct horse battery staple"))
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotContains(t, u.PasswordHash, "correct horse")

	assert.True(t, u.CheckPassword("correct horse battery staple"))
	assert.False(t, u.CheckPassword("wrong"))
	assert.False(t, (&User{}).CheckPassword("anything"), "no hash stored")
}
