package reconciler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/reconciler"
	"github.com/agentstation/dirsync/pkg/tickets"
	"github.com/agentstation/dirsync/pkg/watermark"
)

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name    string
		option  reconciler.Option
		wantErr bool
	}{
		{"job name", reconciler.WithJobName("nightly"), false},
		{"empty job name", reconciler.WithJobName("  "), true},
		{"job name with separator", reconciler.WithJobName("../etc"), true},
		{"negative default role id", reconciler.WithDefaultRoleID(-1), true},
		{"page size", reconciler.WithPageSize(50), false},
		{"zero page size", reconciler.WithPageSize(0), true},
		{"anonymous domain", reconciler.WithAnonymousDomain("@example.invalid"), false},
		{"empty anonymous domain", reconciler.WithAnonymousDomain(""), true},
		{"nil clock", reconciler.WithClock(nil), true},
		{"clock", reconciler.WithClock(time.Now), false},
	}

	client := tickets.NewMemoryClient(nil, nil)
	loader := directory.NewLoader(&directory.MemoryDialer{}, directory.Query{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reconciler.New(client, loader, copyNames, watermark.NewFileStore(t.TempDir()), tt.option)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestJobNameSelectsWatermarkFile(t *testing.T) {
	f := newFixture(t, nil, person("alice"))

	f.run(t, reconciler.WithJobName("nightly"))

	assert.FileExists(t, f.store.Path("nightly"))
	assert.NoFileExists(t, f.store.Path("ticket-users"))
}

func TestAnonymousDomain(t *testing.T) {
	f := newFixture(t, []tickets.User{ticketUser(7, "dave")})

	f.run(t, reconciler.WithAnonymousDomain("example.invalid"))

	dave, ok := f.client.User(7)
	assert.True(t, ok)
	assert.Equal(t, "dave@example.invalid", dave.Email)
}

func TestResultSummary(t *testing.T) {
	tests := []struct {
		name   string
		result reconciler.Result
		want   string
	}{
		{"empty", reconciler.Result{}, "updated=0 created=0 deleted=0 ignored=0"},
		{
			"counters",
			reconciler.Result{Created: 3, Updated: 2, Deleted: 1, Ignored: 4},
			"updated=2 created=3 deleted=1 ignored=4",
		},
		{"skipped", reconciler.Result{Skipped: 2}, "updated=0 created=0 deleted=0 ignored=0 skipped=2"},
		{"dry run", reconciler.Result{Created: 1, DryRun: true}, "updated=0 created=1 deleted=0 ignored=0 (dry run)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Summary())
		})
	}

	assert.Equal(t, 6, (&reconciler.Result{Created: 3, Updated: 2, Deleted: 1, Ignored: 9}).Mutations())
}
