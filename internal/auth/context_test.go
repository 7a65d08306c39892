package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-42")
	assert.Equal(t, "user-42", UserID(ctx))
}

func TestUserID_DefaultsToSystem(t *testing.T) {
	assert.Equal(t, "system", UserID(context.Background()))

	ctx := WithUserID(context.Background(), "")
	assert.Equal(t, "system", UserID(ctx))
}

func TestUserID_IgnoresForeignKeys(t *testing.T) {
	// A key from another package must not collide with the typed key even
	// when its textual value matches.
	type foreignKey string
	ctx := context.WithValue(context.Background(), foreignKey("user_id"), "intruder")
	assert.Equal(t, "system", UserID(ctx))
}
