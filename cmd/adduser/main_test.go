package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"spendwise/internal/auth"
	"spendwise/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type output struct {
	stdout, stderr *bytes.Buffer
}

func runAdduser(t *testing.T, stdin string, args ...string) (output, error) {
	t.Helper()
	out := output{stdout: new(bytes.Buffer), stderr: new(bytes.Buffer)}
	err := run(context.Background(), args, bytes.NewBufferString(stdin), out.stdout, out.stderr)
	return out, err
}

func TestRun_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "success.db")

	out, err := runAdduser(t, "", "-email", "Alice@Example.com", "-name", "Alice", "-password", "secret", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "User alice@example.com (Alice) created successfully")

	db, err := storage.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := db.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("secret", user.PasswordHash))
}

func TestRun_DefaultName(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "name.db")

	out, err := runAdduser(t, "", "-email", "bob@example.com", "-password", "secret", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "(bob)")
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "duplicate.db")
	args := []string{"-email", "dup@example.com", "-password", "secret", "-db", dbPath}

	_, err := runAdduser(t, "", args...)
	require.NoError(t, err, "first run should succeed")

	_, err = runAdduser(t, "", args...)
	require.Error(t, err, "expected error on duplicate user")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingEmailFlag(t *testing.T) {
	out, err := runAdduser(t, "", "-password", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: email")
	assert.Contains(t, out.stdout.String(), "Usage:")
}

func TestRun_InvalidEmail(t *testing.T) {
	_, err := runAdduser(t, "", "-email", "not an email", "-password", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email address")
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "interactive.db")

	out, err := runAdduser(t, "interactive_secret\n", "-email", "carol@example.com", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.stdout.String(), "Password: ")
	assert.Contains(t, out.stdout.String(), "User carol@example.com")
}

func TestRun_InteractivePassword_Empty(t *testing.T) {
	_, err := runAdduser(t, "\n", "-email", "empty@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRun_EnvVarOverride(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("DB_PATH", dbPath)

	_, err := runAdduser(t, "", "-email", "env@example.com", "-password", "secret")
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestRun_ExplicitDBFlagWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env.db")
	flagPath := filepath.Join(dir, "flag.db")
	t.Setenv("DB_PATH", envPath)

	_, err := runAdduser(t, "", "-email", "flag@example.com", "-password", "secret", "-db", flagPath)
	require.NoError(t, err)
	assert.FileExists(t, flagPath)
	assert.NoFileExists(t, envPath)
}

func TestRun_InvalidDBPath(t *testing.T) {
	// A directory cannot be opened as a database file
	_, err := runAdduser(t, "", "-email", "fail@example.com", "-password", "secret", "-db", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_InvalidFlag(t *testing.T) {
	_, err := runAdduser(t, "", "-invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
