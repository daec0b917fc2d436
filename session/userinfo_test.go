package session_test

import (
	"testing"

	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/stretchr/testify/require"
)

func TestNewUserInfo(t *testing.T) {
	tests := []struct {
		name   string
		claims session.Claims
		want   session.UserInfo
	}{
		{
			name: "name claim wins",
			claims: session.Claims{Sub: "1", Name: "Chef Ramsay", GivenName: "Gordon", FamilyName: "Ramsay",
				PreferredUsername: "gordon", Email: "g@example.com"},
			want: session.UserInfo{ID: "1", Username: "gordon", FirstName: "Gordon", LastName: "Ramsay",
				Email: "g@example.com", FullName: "Chef Ramsay"},
		},
		{
			name:   "given and family name",
			claims: session.Claims{Sub: "2", GivenName: "Ada", FamilyName: "Lovelace", PreferredUsername: "ada"},
			want:   session.UserInfo{ID: "2", Username: "ada", FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace"},
		},
		{
			name:   "only given name falls back to username",
			claims: session.Claims{Sub: "3", GivenName: "Ada", PreferredUsername: "ada"},
			want:   session.UserInfo{ID: "3", Username: "ada", FirstName: "Ada", FullName: "ada"},
		},
		{
			name:   "preferred username",
			claims: session.Claims{Sub: "4", PreferredUsername: "cook", Email: "cook@example.com"},
			want:   session.UserInfo{ID: "4", Username: "cook", Email: "cook@example.com", FullName: "cook"},
		},
		{
			name:   "email only",
			claims: session.Claims{Sub: "5", Email: "e@example.com"},
			want:   session.UserInfo{ID: "5", Username: "e@example.com", Email: "e@example.com", FullName: "e@example.com"},
		},
		{
			name:   "birthdate preferred over dob",
			claims: session.Claims{Sub: "6", Email: "e@example.com", Birthdate: "1990-01-02", Dob: "1991-01-01", Gender: "female"},
			want: session.UserInfo{ID: "6", Username: "e@example.com", Email: "e@example.com", FullName: "e@example.com",
				DOB: "1990-01-02", Gender: "female"},
		},
		{
			name:   "dob fallback",
			claims: session.Claims{Sub: "7", Email: "e@example.com", Dob: "1991-01-01"},
			want:   session.UserInfo{ID: "7", Username: "e@example.com", Email: "e@example.com", FullName: "e@example.com", DOB: "1991-01-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, session.NewUserInfo(tt.claims))
		})
	}
}

func TestNewUserInfo_FullNameNeverEmpty(t *testing.T) {
	for _, c := range []session.Claims{
		{Email: "a@example.com"},
		{PreferredUsername: "a"},
		{GivenName: "A", FamilyName: "B"},
		{GivenName: "A", Email: "a@example.com"},
		{FamilyName: "B", PreferredUsername: "b"},
	} {
		require.NotEmpty(t, session.NewUserInfo(c).FullName, "%+v", c)
	}
}
