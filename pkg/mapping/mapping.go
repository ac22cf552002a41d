// Package mapping converts directory records into ticket user drafts.
//
// A Transform is user-supplied business logic: the engine seeds a draft with
// the login and roles, and the transform fills in everything else. Two
// implementations exist, a sandboxed JavaScript program (ScriptTransform) and
// a declarative YAML rule file (FieldTransform). The engine depends only on
// the Transform interface.
package mapping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/tickets"
)

// Mode tells a transform whether the draft will create or update a user.
type Mode string

// Transform modes.
const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Transform fills draft from source in place.
// draft.Login and draft.Roles are pre-set by the caller; draft.Roles is the
// role list the transform may extend or replace. A transform must leave Login
// unchanged and cannot set the id.
type Transform interface {
	Apply(ctx context.Context, mode Mode, draft *tickets.Draft, source directory.Record) error
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(ctx context.Context, mode Mode, draft *tickets.Draft, source directory.Record) error

// Apply calls f.
func (f TransformFunc) Apply(ctx context.Context, mode Mode, draft *tickets.Draft, source directory.Record) error {
	return f(ctx, mode, draft, source)
}

// Kind names a transform implementation in configuration.
type Kind string

// Transform kinds.
const (
	KindScript Kind = "script"
	KindFields Kind = "fields"
)

// Load builds the transform of kind from the file at path.
// An empty kind is inferred from the file extension.
func Load(kind Kind, path string, timeout time.Duration) (Transform, error) {
	if kind == "" {
		kind = inferKind(path)
	}
	switch kind {
	case KindScript:
		return LoadScript(path, WithTimeout(timeout))
	case KindFields:
		return LoadFields(path)
	}
	return nil, fmt.Errorf("unknown mapping type %q", kind)
}

func inferKind(path string) Kind {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return KindFields
	default:
		return KindScript
	}
}
