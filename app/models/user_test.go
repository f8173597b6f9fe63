package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"valid", User{Subject: "auth0|abc123", Email: "a@example.com", Plan: PLAN_FREE}, false},
		{"no email", User{Subject: "auth0|abc123", Plan: PLAN_FREE}, false},
		{"missing subject", User{Email: "a@example.com", Plan: PLAN_FREE}, true},
		{"bad email", User{Subject: "auth0|abc123", Email: "not-an-email", Plan: PLAN_FREE}, true},
		{"unknown plan", User{Subject: "auth0|abc123", Plan: "platinum"}, true},
		{"subject too long", User{Subject: strings.Repeat("x", 192), Plan: PLAN_FREE}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, PLAN_PRO, NormalizePlan("pro"))
	assert.Equal(t, PLAN_FREE, NormalizePlan("free"))
	assert.Equal(t, PLAN_FREE, NormalizePlan(""))
	assert.Equal(t, PLAN_FREE, NormalizePlan("legacy-gold"))
}

func TestTitleFromMessage(t *testing.T) {
	assert.Equal(t, "New conversation", TitleFromMessage("   "))
	assert.Equal(t, "hello world", TitleFromMessage("hello world"))
	long := "one two three four five six seven eight nine ten"
	assert.Equal(t, "one two three four five six seven eight", TitleFromMessage(long))
}
