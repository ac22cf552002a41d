package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/dirsync/internal/secrets"
	"github.com/agentstation/dirsync/pkg/errors"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	mapping := filepath.Join(dir, "mapping.yaml")
	writeFile(t, mapping, "fields:\n  firstname: givenName\n")
	return &Config{
		Format: "json",
		Ticket: TicketConfig{
			BaseURL:  "https://helpdesk.example.org",
			Token:    "token",
			Timeout:  time.Second,
			PageSize: 25,
		},
		LDAP: LDAPConfig{
			Host:   "ldap.example.org",
			Scope:  "sub",
			BaseDN: "ou=people,dc=example,dc=org",
		},
		Sync: SyncConfig{
			JobName:            "ticket-users",
			VarDir:             filepath.Join(dir, "var"),
			DefaultRole:        "Customer",
			ProtectedRoleNames: []string{"Admin"},
			UnpreservedRoles:   []string{"Agent"},
			MappingFile:        mapping,
			MappingTimeout:     time.Second,
			ErrorExitDelay:     3 * time.Second,
		},
		Secrets: SecretsConfig{KeyFile: filepath.Join(dir, "secret.bin")},
	}
}

func newTestApp(t *testing.T, config *Config) *App {
	t.Helper()
	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithConfig(config), WithLogger(&logger))
	require.NoError(t, err)
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	isolate(t)

	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

func TestApp_Accessors(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	assert.Equal(t, "json", app.OutputFormat())
	assert.Equal(t, 25, app.PageSize())
	assert.Equal(t, 3*time.Second, app.ErrorExitDelay())
}

func TestApp_EngineUsesConfig(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	runner, err := app.Engine()
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestApp_EngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing mapping file", func(c *Config) { c.Sync.MappingFile = filepath.Join(t.TempDir(), "none.yaml") }},
		{"missing ticket url", func(c *Config) { c.Ticket.BaseURL = "" }},
		{"missing ldap host", func(c *Config) { c.LDAP.Host = "" }},
		{"bad scope", func(c *Config) { c.LDAP.Scope = "deep" }},
		{"empty job name", func(c *Config) { c.Sync.JobName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t)
			tt.modify(config)
			app := newTestApp(t, config)

			runner, err := app.Engine()
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), "got %v", err)
			assert.Nil(t, runner)
		})
	}
}

func TestApp_TicketsDecryptsToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"login":"admin"}`))
	}))
	defer server.Close()

	config := testConfig(t)
	cipher, err := secrets.LoadOrCreate(context.Background(), config.Secrets.KeyFile)
	require.NoError(t, err)
	config.Ticket.BaseURL = server.URL
	config.Ticket.Token = cipher.Encrypt("s3cret")
	app := newTestApp(t, config)

	client, err := app.Tickets()
	require.NoError(t, err)
	me, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "admin", me.Login)
	assert.Equal(t, "Token token=s3cret", gotAuth)

	again, err := app.Tickets()
	require.NoError(t, err)
	assert.Same(t, client, again)
}

func TestApp_UndecryptableSecret(t *testing.T) {
	config := testConfig(t)
	config.LDAP.BindPassword = secrets.Prefix + "not-base64!"
	app := newTestApp(t, config)

	_, err := app.Directory()
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "ldap.bind.password", cfgErr.Component)
}

func TestApp_PlainSecretsNeedNoKeyFile(t *testing.T) {
	config := testConfig(t)
	app := newTestApp(t, config)

	_, err := app.Directory()
	require.NoError(t, err)
	assert.NoFileExists(t, config.Secrets.KeyFile)
}

func TestApp_VersionCommand(t *testing.T) {
	isolate(t)
	app := newTestApp(t, testConfig(t))

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "-v", "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "dirsync 1.0.0")
	assert.Contains(t, out.String(), "commit:   abc123")
}

func TestApp_RootCommandRegistersCommands(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	root := app.createRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"sync", "check", "encrypt", "decrypt", "pwgen", "mapping", "config", "version"} {
		assert.Contains(t, joined, want)
	}
}

func TestApp_SetupCommandLoadsConfigFlag(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "other.yaml")
	writeFile(t, path, "sync:\n  job-name: other\n")
	app := newTestApp(t, testConfig(t))

	root := app.createRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"version", "--config", path, "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, "other", app.Config().Sync.JobName)
	assert.Equal(t, "error", app.Config().LogLevel)
}

func TestApp_RejectsUnknownFormat(t *testing.T) {
	isolate(t)
	app := newTestApp(t, testConfig(t))

	root := app.createRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"version", "--format", "xml"})
	err := root.ExecuteContext(context.Background())
	assert.True(t, errors.IsValidationError(err), "got %v", err)
}

func TestApp_Settings(t *testing.T) {
	config := testConfig(t)
	config.LDAP.BindPassword = secrets.Prefix + "c2VjcmV0"
	app := newTestApp(t, config)

	settings := app.Settings()

	ticket := settings["ticket"].(map[string]any)
	assert.Equal(t, "********", ticket["token"])
	assert.Equal(t, "1s", ticket["timeout"])
	bind := settings["ldap"].(map[string]any)["bind"].(map[string]any)
	assert.Equal(t, secrets.Prefix+"c2VjcmV0", bind["password"], "encrypted values are shown as written")
	syncSettings := settings["sync"].(map[string]any)
	assert.Equal(t, []string{"Admin"}, syncSettings["protected-role-names"])
	assert.Equal(t, []int{}, syncSettings["protected-role-ids"])
}

func TestApp_ConfigShowCommand(t *testing.T) {
	isolate(t)
	app := newTestApp(t, testConfig(t))

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "show", "-o", "yaml", "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "base-url: https://helpdesk.example.org")
	assert.Contains(t, out.String(), "********")
	assert.NotContains(t, out.String(), "token: token")
}

func TestApp_Transform(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	transform, err := app.Transform()
	require.NoError(t, err)
	assert.NotNil(t, transform)

	config := testConfig(t)
	config.Sync.MappingFile = filepath.Join(t.TempDir(), "missing.js")
	_, err = newTestApp(t, config).Transform()
	assert.True(t, errors.IsValidationError(err))
}
