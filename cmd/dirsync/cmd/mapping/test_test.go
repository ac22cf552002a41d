package mapping

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/tickets"
)

func entry(login, given, mail string) directory.Entry {
	return directory.Entry{
		DN: "uid=" + login + ",ou=people,dc=example,dc=org",
		Attributes: map[string][]string{
			"uid":       {login},
			"givenName": {given},
			"mail":      {mail},
		},
	}
}

func testApp(dialer *directory.MemoryDialer, transform mapping.Transform) *application.Mock {
	return &application.Mock{
		DirectoryFunc: func() (application.DirectoryLister, error) {
			return directory.NewLoader(dialer, directory.Query{
				FilterTemplate: "(modifyTimestamp>=" + directory.FilterPlaceholder + ")",
				Attributes:     []string{"givenName", "mail"},
			}), nil
		},
		TransformFunc: func() (mapping.Transform, error) { return transform, nil },
	}
}

var copyAttributes = mapping.TransformFunc(func(_ context.Context, mode mapping.Mode, d *tickets.Draft, src directory.Record) error {
	if mode != mapping.ModeCreate {
		return errors.New("unexpected mode " + string(mode))
	}
	if src.Get("mail") == "" {
		return errors.New("missing mail")
	}
	d.Firstname = src.Get("givenName")
	d.Email = src.Get("mail")
	d.AddRole("Customer")
	return nil
})

func execute(t *testing.T, app application.Application, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"test"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMappingTest(t *testing.T) {
	dialer := &directory.MemoryDialer{Entries: []directory.Entry{
		entry("Bob", "Bob", "bob@example.org"),
		entry("alice", "Alice", "alice@example.org"),
	}}

	out, err := execute(t, testApp(dialer, copyAttributes))
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Previews, 2)
	assert.Equal(t, "alice", report.Previews[0].Login)
	assert.Equal(t, "Alice", report.Previews[0].Draft.Firstname)
	assert.Equal(t, "bob@example.org", report.Previews[1].Draft.Email)
	assert.Equal(t, []string{"Customer"}, report.Previews[1].Draft.Roles)
	assert.Zero(t, report.Failed)

	require.Len(t, dialer.Searches(), 1)
	assert.Contains(t, dialer.Searches()[0].Filter, "(modifyTimestamp>=19700101000000.000Z)", "entries are read from the zero watermark")
}

func TestMappingTestSelectedLogins(t *testing.T) {
	dialer := &directory.MemoryDialer{Entries: []directory.Entry{
		entry("alice", "Alice", "alice@example.org"),
		entry("bob", "Bob", "bob@example.org"),
	}}
	app := testApp(dialer, copyAttributes)

	out, err := execute(t, app, "BOB")
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Previews, 1)
	assert.Equal(t, "bob", report.Previews[0].Login)

	_, err = execute(t, app, "carol")
	assert.True(t, errors.IsNotFound(err))
}

func TestMappingTestReportsFailures(t *testing.T) {
	dialer := &directory.MemoryDialer{Entries: []directory.Entry{
		entry("alice", "Alice", "alice@example.org"),
		entry("bob", "Bob", ""),
	}}

	out, err := execute(t, testApp(dialer, copyAttributes))

	assert.True(t, errors.IsValidationError(err))
	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Failed)
	assert.Nil(t, report.Previews[1].Draft)
	assert.Equal(t, "missing mail", report.Previews[1].Error)
}

func TestMappingTestTransformError(t *testing.T) {
	app := &application.Mock{
		DirectoryFunc: func() (application.DirectoryLister, error) {
			return directory.NewLoader(&directory.MemoryDialer{}, directory.Query{}), nil
		},
		TransformFunc: func() (mapping.Transform, error) {
			return nil, errors.NewConfigError("sync.mapping", "cannot load mapping.js", errors.New("no such file"))
		},
	}

	_, err := execute(t, app)
	assert.True(t, errors.IsValidationError(err))
}

func TestReportTable(t *testing.T) {
	d := tickets.NewDraft("alice")
	d.Firstname, d.Lastname, d.Email = "Alice", "Smith", "alice@example.org"
	d.AddRole("Customer")
	report := Report{Previews: []Preview{{Login: "alice", Draft: d}, {Login: "bob", Error: "boom"}}}

	data := report.Table()

	assert.Equal(t, [][]string{
		{"alice", "Alice Smith", "alice@example.org", "Customer", ""},
		{"bob", "", "", "", "boom"},
	}, data.Rows)
}
