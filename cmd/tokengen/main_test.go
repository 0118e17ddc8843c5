package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/utils"
)

func TestRunMintsToken(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--secret", "s3", "--user", "42", "--role", "admin", "--ttl", "5m"}, &out))

	actor, err := utils.ParseAccessToken("s3", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserID: 42, Role: model.RoleAdmin}, actor)
}

func TestRunHashesServiceKey(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"--hash-key", "internal", "--cost", "4"}, &out))
	assert.True(t, utils.VerifySecret(strings.TrimSpace(out.String()), "internal"))
}

func TestRunRejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	var out bytes.Buffer
	assert.Error(t, run([]string{"--user", "1"}, &out), "missing secret")
	assert.Error(t, run([]string{"--secret", "s", "--role", "root"}, &out))
	assert.Error(t, run([]string{"--secret", "s", "--user", "0"}, &out))
	assert.Error(t, run([]string{"--secret", "s", "extra"}, &out))
}
