package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/reconciler"
	"github.com/agentstation/dirsync/pkg/tickets"
	"github.com/agentstation/dirsync/pkg/watermark"
)

type runnerFunc func(ctx context.Context) (*reconciler.Result, error)

func (f runnerFunc) Run(ctx context.Context) (*reconciler.Result, error) { return f(ctx) }

func memoryApp(t *testing.T, client *tickets.MemoryClient, store *watermark.FileStore, logins ...string) *application.Mock {
	t.Helper()
	var entries []directory.Entry
	for _, l := range logins {
		entries = append(entries, directory.Entry{
			DN:         "uid=" + l + ",dc=example,dc=org",
			Attributes: map[string][]string{"uid": {l}, "mail": {l + "@example.org"}},
		})
	}
	loader := directory.NewLoader(&directory.MemoryDialer{Entries: entries}, directory.Query{})
	transform := mapping.TransformFunc(func(_ context.Context, _ mapping.Mode, d *tickets.Draft, src directory.Record) error {
		d.Email = src.Get("mail")
		return nil
	})
	return &application.Mock{
		EngineFunc: func(opts ...reconciler.Option) (application.Runner, error) {
			e, err := reconciler.New(client, loader, transform, store, opts...)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
	}
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

func TestSyncCommand(t *testing.T) {
	logging.DisableLoggingForTest(t)
	client := tickets.NewMemoryClient([]tickets.Role{{ID: 1, Name: "Admin"}, {ID: 3, Name: "Customer"}}, nil)
	store := watermark.NewFileStore(t.TempDir())

	out, err := execute(t, memoryApp(t, client, store, "alice", "bob"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.EqualValues(t, 2, got["created"])
	assert.Equal(t, false, got["dry_run"])
	assert.NotEmpty(t, got["watermark"])
	assert.Len(t, client.CallsFor("create"), 2)

	_, err = store.Read(context.Background(), "ticket-users")
	assert.NoError(t, err)
	assert.FileExists(t, store.Path("ticket-users"))
}

func TestSyncCommandDryRun(t *testing.T) {
	logging.DisableLoggingForTest(t)
	client := tickets.NewMemoryClient([]tickets.Role{{ID: 1, Name: "Admin"}}, nil)
	store := watermark.NewFileStore(t.TempDir())

	out, err := execute(t, memoryApp(t, client, store, "alice"), "--dry-run", "--full-sync")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["dry_run"])
	assert.Equal(t, true, got["full_sync"])
	assert.EqualValues(t, 1, got["created"])
	assert.Empty(t, client.Calls())
	assert.NoFileExists(t, store.Path("ticket-users"))
}

func TestSyncCommandWaitsAfterMutationFailure(t *testing.T) {
	failure := errors.NewMutationError("update", "bob", 5, errors.New("rejected"))
	var waited time.Duration
	app := &application.Mock{
		EngineFunc: func(...reconciler.Option) (application.Runner, error) {
			return runnerFunc(func(context.Context) (*reconciler.Result, error) {
				return &reconciler.Result{Created: 1}, failure
			}), nil
		},
		ErrorExitDelayFunc: func() time.Duration {
			waited = 10 * time.Millisecond
			return waited
		},
	}

	start := time.Now()
	out, err := execute(t, app)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 10*time.Millisecond, waited)
	assert.GreaterOrEqual(t, time.Since(start), waited)
	assert.Contains(t, out, `"created": 1`, "partial counters are still printed")
}

func TestSyncCommandSkipsDelayForOtherErrors(t *testing.T) {
	called := false
	app := &application.Mock{
		EngineFunc: func(...reconciler.Option) (application.Runner, error) {
			return runnerFunc(func(context.Context) (*reconciler.Result, error) {
				return nil, errors.WrapResource("fetch", "users", "", errors.New("timeout"))
			}), nil
		},
		ErrorExitDelayFunc: func() time.Duration {
			called = true
			return time.Hour
		},
	}

	out, err := execute(t, app)

	require.Error(t, err)
	assert.False(t, called)
	assert.Empty(t, out)
}

func TestSyncCommandOmitsSummaryWhenRunAborts(t *testing.T) {
	logging.DisableLoggingForTest(t)
	client := tickets.NewMemoryClient([]tickets.Role{{ID: 1, Name: "Admin"}}, nil)
	dir := t.TempDir()
	store := watermark.NewFileStore(dir)
	require.NoError(t, os.WriteFile(store.Path("ticket-users"), []byte("not a timestamp"), 0o600))

	out, err := execute(t, memoryApp(t, client, store, "alice"))

	require.Error(t, err)
	assert.False(t, errors.IsMutationFailed(err))
	assert.Empty(t, out)
	assert.Empty(t, client.Calls())
}

func TestSyncCommandRejectsUnresolvedProtectedRole(t *testing.T) {
	logging.DisableLoggingForTest(t)
	client := tickets.NewMemoryClient([]tickets.Role{{ID: 3, Name: "Customer"}}, nil)
	store := watermark.NewFileStore(t.TempDir())

	out, err := execute(t, memoryApp(t, client, store, "alice"))

	assert.True(t, errors.IsValidationError(err))
	assert.Empty(t, out)
	assert.Empty(t, client.Calls())
}

func TestSyncCommandRejectsArguments(t *testing.T) {
	_, err := execute(t, &application.Mock{}, "extra")
	assert.Error(t, err)
}

func TestWaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	wait(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}
