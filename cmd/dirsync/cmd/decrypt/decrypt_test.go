package decrypt

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/secrets"
	"github.com/agentstation/dirsync/pkg/errors"
)

func cipherApp(t *testing.T) (*application.Mock, *secrets.Cipher) {
	t.Helper()
	keyFile := filepath.Join(t.TempDir(), "secret.bin")
	cipher, err := secrets.LoadOrCreate(context.Background(), keyFile)
	require.NoError(t, err)
	return &application.Mock{
		CipherFunc: func(ctx context.Context) (*secrets.Cipher, error) {
			return secrets.LoadOrCreate(ctx, keyFile)
		},
	}, cipher
}

func execute(t *testing.T, app application.Application, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDecryptCommand(t *testing.T) {
	app, cipher := cipherApp(t)

	out, err := execute(t, app, cipher.Encrypt("s3cret"))

	require.NoError(t, err)
	assert.Equal(t, "s3cret", strings.TrimSpace(out))
}

func TestDecryptCommandErrors(t *testing.T) {
	app, _ := cipherApp(t)

	tests := []struct {
		name  string
		value string
	}{
		{"plain value", "s3cret"},
		{"not base64", secrets.Prefix + "not-base64!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, app, tt.value)
			assert.Error(t, err)
			assert.Empty(t, out)
		})
	}

	_, err := execute(t, app, "s3cret")
	assert.True(t, errors.IsValidationError(err))
}
