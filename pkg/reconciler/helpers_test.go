package reconciler_test

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/reconciler"
	"github.com/agentstation/dirsync/pkg/tickets"
	"github.com/agentstation/dirsync/pkg/watermark"
)

const (
	roleAdmin    = 1
	roleAgent    = 2
	roleCustomer = 3
	roleSales    = 4
	roleVIP      = 5
)

var testRoles = []tickets.Role{
	{ID: roleAdmin, Name: "Admin", Active: true},
	{ID: roleAgent, Name: "Agent", Active: true},
	{ID: roleCustomer, Name: "Customer", Active: true, DefaultAtSignup: true},
	{ID: roleSales, Name: "Syncer-Sales", Active: true},
	{ID: roleVIP, Name: "Manual-VIP", Active: true},
}

// Entries older than this are returned only by full and ID-only searches.
const lastModified = "20240101000000.000Z"

var firstRun = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	client *tickets.MemoryClient
	dialer *directory.MemoryDialer
	store  *watermark.FileStore
	now    time.Time
}

func newFixture(t *testing.T, users []tickets.User, entries ...directory.Entry) *fixture {
	t.Helper()
	logging.DisableLoggingForTest(t)
	return &fixture{
		client: tickets.NewMemoryClient(testRoles, users),
		dialer: &directory.MemoryDialer{Entries: entries, Match: changedSince},
		store:  watermark.NewFileStore(t.TempDir()),
		now:    firstRun,
	}
}

func (f *fixture) engine(t *testing.T, opts ...reconciler.Option) *reconciler.Engine {
	t.Helper()
	return f.engineWith(t, copyNames, opts...)
}

func (f *fixture) engineWith(t *testing.T, transform mapping.Transform, opts ...reconciler.Option) *reconciler.Engine {
	t.Helper()
	loader := directory.NewLoader(f.dialer, directory.Query{
		BaseDN:         "ou=people,dc=example,dc=org",
		FilterTemplate: "(&(objectClass=inetOrgPerson)(modifyTimestamp>={0}))",
		LoginAttribute: "uid",
		Attributes:     []string{"givenName", "sn", "mail", "modifyTimestamp"},
		PageSize:       2,
	})
	base := []reconciler.Option{
		reconciler.WithClock(func() time.Time { return f.now }),
		reconciler.WithDefaultRole("Customer"),
		reconciler.WithPageSize(2),
	}
	e, err := reconciler.New(f.client, loader, transform, f.store, append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func (f *fixture) run(t *testing.T, opts ...reconciler.Option) *reconciler.Result {
	t.Helper()
	res, err := f.engine(t, opts...).Run(context.Background())
	require.NoError(t, err)
	return res
}

func (f *fixture) watermarkFile(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.store.Path("ticket-users"))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

// copyNames maps the person attributes onto the draft.
var copyNames = mapping.TransformFunc(func(_ context.Context, _ mapping.Mode, d *tickets.Draft, src directory.Record) error {
	d.Firstname = src.Get("givenName")
	d.Lastname = src.Get("sn")
	d.Email = src.Get("mail")
	return nil
})

func person(login string) directory.Entry {
	return personModified(login, lastModified)
}

func personModified(login, modified string) directory.Entry {
	return directory.Entry{
		DN: "uid=" + login + ",ou=people,dc=example,dc=org",
		Attributes: map[string][]string{
			"uid":             {login},
			"givenName":       {strings.ToUpper(login[:1]) + login[1:]},
			"sn":              {"Example"},
			"mail":            {login + "@example.org"},
			"modifyTimestamp": {modified},
		},
	}
}

func ticketUser(id int, login string, roles ...int) tickets.User {
	return tickets.User{
		ID:        id,
		Login:     login,
		Firstname: login,
		Lastname:  "Existing",
		Email:     login + "@old.example.org",
		Active:    true,
		RoleIDs:   roles,
	}
}

// changedSince evaluates the modifyTimestamp>= clause of a search filter.
func changedSince(req directory.SearchRequest, e directory.Entry) bool {
	const clause = "modifyTimestamp>="
	i := strings.Index(req.Filter, clause)
	if i < 0 {
		return true
	}
	rest := req.Filter[i+len(clause):]
	if j := strings.Index(rest, ")"); j >= 0 {
		rest = rest[:j]
	}
	since, err := watermark.Parse(rest)
	if err != nil {
		return false
	}
	values := e.Attributes["modifyTimestamp"]
	if len(values) == 0 {
		return true
	}
	modified, err := watermark.Parse(values[0])
	if err != nil {
		return false
	}
	return !modified.Time().Before(since.Time())
}

func logins(calls []tickets.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Login)
	}
	return out
}

func ids(calls []tickets.Call) []int {
	out := make([]int, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.ID)
	}
	return out
}

func decodeDraft(t *testing.T, c tickets.Call) tickets.Draft {
	t.Helper()
	var d tickets.Draft
	require.NoError(t, json.Unmarshal(c.Body, &d))
	return d
}
