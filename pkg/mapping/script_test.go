package mapping_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/dirsync/pkg/directory"
	pkgerrors "github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/tickets"
)

const mappingScript = `
function fill(user, source) {
  user.firstname = source.get("givenName");
  user.lastname = source.get("sn");
  user.email = source.get("mail");
  user.department = source.attributes.ou ? source.attributes.ou[0] : null;
}

function create(user, source, roles) {
  fill(user, source);
  user.password = "initial";
  user.active = true;
  roles.push("Syncer-New");
  console.log("creating", user.login, source.dn);
}

function update(user, source, roles) {
  fill(user, source);
  if (source.getAll("memberOf").indexOf("cn=sales,ou=groups") >= 0) {
    roles.push("Syncer-Sales");
  }
  user.building = "B" + source.getAttributeValue("roomNumber");
}
`

func alice() directory.Record {
	return directory.Record{
		Login: "alice",
		DN:    "uid=alice,ou=people,dc=example,dc=org",
		Attributes: map[string][]string{
			"givenName":  {"Alice"},
			"sn":         {"Liddell"},
			"mail":       {"alice@example.org"},
			"memberOf":   {"cn=staff,ou=groups", "cn=sales,ou=groups"},
			"roomNumber": {"12"},
		},
	}
}

func TestScriptCreate(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	tr, err := mapping.NewScript("mapping.js", mappingScript)
	require.NoError(t, err)

	draft := tickets.NewDraft("alice")
	draft.AddRole("Customer")
	require.NoError(t, tr.Apply(ctx, mapping.ModeCreate, draft, alice()))

	assert.Equal(t, "alice", draft.Login)
	assert.Equal(t, "Alice", draft.Firstname)
	assert.Equal(t, "Liddell", draft.Lastname)
	assert.Equal(t, "alice@example.org", draft.Email)
	assert.Equal(t, "initial", draft.Password)
	assert.Empty(t, draft.Department)
	require.NotNil(t, draft.Active)
	assert.True(t, *draft.Active)
	assert.Equal(t, []string{"Customer", "Syncer-New"}, draft.Roles, "roles argument aliases user.roles")

	tl.AssertContains(t, "creating alice uid=alice,ou=people,dc=example,dc=org")
}

func TestScriptUpdate(t *testing.T) {
	tr, err := mapping.NewScript("mapping.js", mappingScript)
	require.NoError(t, err)

	draft := tickets.NewDraft("alice")
	draft.ID = 5
	require.NoError(t, tr.Apply(context.Background(), mapping.ModeUpdate, draft, alice()))

	assert.Equal(t, 5, draft.ID)
	assert.Empty(t, draft.Password)
	assert.Equal(t, []string{"Syncer-Sales"}, draft.Roles, "an empty role list is still shared")
	assert.Equal(t, map[string]any{"building": "B12"}, draft.Extra)
}

func TestScriptCannotAssignID(t *testing.T) {
	tr, err := mapping.NewScript("id.js", `
function create(user) { user.id = 77; }
function update(user) { user.id = 77; }
`)
	require.NoError(t, err)

	draft := tickets.NewDraft("bob")
	draft.ID = 5
	require.NoError(t, tr.Apply(context.Background(), mapping.ModeUpdate, draft, directory.Record{Login: "bob"}))
	assert.Equal(t, 5, draft.ID)
	assert.Nil(t, draft.Extra)
}

func TestScriptSeesNoID(t *testing.T) {
	tr, err := mapping.NewScript("probe.js", `
function create(user) {}
function update(user) { user.note = String(user.id); }
`)
	require.NoError(t, err)

	draft := tickets.NewDraft("bob")
	draft.ID = 5
	require.NoError(t, tr.Apply(context.Background(), mapping.ModeUpdate, draft, directory.Record{Login: "bob"}))
	assert.Equal(t, "undefined", draft.Note)
}

func TestScriptTimeout(t *testing.T) {
	tr, err := mapping.NewScript("loop.js", `
function create(user) { for (;;) {} }
function update(user) { user.note = "ok"; }
`, mapping.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	err = tr.Apply(context.Background(), mapping.ModeCreate, tickets.NewDraft("bob"), directory.Record{Login: "bob"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")

	// the runtime is usable after an interrupt
	draft := tickets.NewDraft("bob")
	require.NoError(t, tr.Apply(context.Background(), mapping.ModeUpdate, draft, directory.Record{Login: "bob"}))
	assert.Equal(t, "ok", draft.Note)
}

func TestScriptRecoversFromRepeatedInterrupts(t *testing.T) {
	tr, err := mapping.NewScript("loop.js", `
function create(user) { for (;;) {} }
function update(user) { user.note = "ok"; }
`, mapping.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		err := tr.Apply(context.Background(), mapping.ModeCreate, tickets.NewDraft("bob"), directory.Record{Login: "bob"})
		require.Error(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = tr.Apply(ctx, mapping.ModeCreate, tickets.NewDraft("bob"), directory.Record{Login: "bob"})

		draft := tickets.NewDraft("bob")
		require.NoError(t, tr.Apply(context.Background(), mapping.ModeUpdate, draft, directory.Record{Login: "bob"}), "run %d", i)
		assert.Equal(t, "ok", draft.Note)
	}
}

func TestScriptThrows(t *testing.T) {
	tr, err := mapping.NewScript("throw.js", `
function create(user) { throw new Error("no mail for " + user.login); }
function update(user) {}
`)
	require.NoError(t, err)

	err = tr.Apply(context.Background(), mapping.ModeCreate, tickets.NewDraft("bob"), directory.Record{Login: "bob"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mail for bob")
}

func TestNewScriptErrors(t *testing.T) {
	t.Run("syntax", func(t *testing.T) {
		_, err := mapping.NewScript("bad.js", "function create(user {")
		var parseErr *pkgerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "javascript", parseErr.Format)
	})

	t.Run("missing update", func(t *testing.T) {
		_, err := mapping.NewScript("partial.js", "function create(user) {}")
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := mapping.LoadScript(filepath.Join(t.TempDir(), "absent.js"))
		var ioErr *pkgerrors.IOError
		assert.ErrorAs(t, err, &ioErr)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	js := filepath.Join(dir, "mapping.js")
	require.NoError(t, os.WriteFile(js, []byte(mappingScript), 0o644))
	yml := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("fields:\n  email: mail\n"), 0o644))

	tr, err := mapping.Load("", js, 0)
	require.NoError(t, err)
	assert.IsType(t, &mapping.ScriptTransform{}, tr)

	tr, err = mapping.Load("", yml, 0)
	require.NoError(t, err)
	assert.IsType(t, &mapping.FieldTransform{}, tr)

	tr, err = mapping.Load(mapping.KindScript, js, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &mapping.ScriptTransform{}, tr)

	_, err = mapping.Load("lua", js, 0)
	assert.Error(t, err)
}
