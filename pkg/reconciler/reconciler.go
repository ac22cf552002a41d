// Package reconciler runs the one-way reconciliation of directory users into
// the ticket system.
//
// A run loads the ticket inventory, anonymizes ticket users that no longer
// exist in the directory, then creates or updates a ticket user for every
// directory entry changed since the stored watermark. Protected users are
// never touched. The watermark is advanced only after a complete, non-dry run.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/tickets"
	"github.com/agentstation/dirsync/pkg/watermark"
)

// Mutation actions as they appear in logs and errors.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionIgnore = "ignore"
)

// Directory is the directory side of a run. *directory.Loader implements it.
type Directory interface {
	// FetchIDs lists every login currently in the directory.
	FetchIDs(ctx context.Context) (*directory.Snapshot, error)
	// FetchFull returns the entries changed since the watermark with all
	// configured attributes.
	FetchFull(ctx context.Context, since watermark.Watermark) (*directory.Snapshot, error)
}

var _ Directory = (*directory.Loader)(nil)

// Engine reconciles directory users into the ticket system.
// An Engine holds no per-run state and may be run repeatedly.
type Engine struct {
	client    tickets.Client
	directory Directory
	transform mapping.Transform
	store     watermark.Store
	opts      options
}

// New creates an Engine with options.
func New(client tickets.Client, dir Directory, transform mapping.Transform, store watermark.Store, opts ...Option) (*Engine, error) {
	switch {
	case client == nil:
		return nil, &errors.ValidationError{Field: "client", Message: "cannot be nil"}
	case dir == nil:
		return nil, &errors.ValidationError{Field: "directory", Message: "cannot be nil"}
	case transform == nil:
		return nil, &errors.ValidationError{Field: "transform", Message: "cannot be nil"}
	case store == nil:
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}

	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{
		client:    client,
		directory: dir,
		transform: transform,
		store:     store,
		opts:      *o,
	}, nil
}

// Job returns the configured job name.
func (e *Engine) Job() string {
	return e.opts.job
}

// run holds the state of one reconciliation.
type run struct {
	*Engine
	inv    *tickets.Inventory
	policy *policy
	result *Result
}

// Run performs one reconciliation.
//
// Bulk load failures and a corrupt watermark abort the run before any
// mutation. The first rejected mutation aborts the run with a
// *errors.MutationError. In both cases the returned Result holds the counters
// reached so far and the watermark is left unchanged.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	started := e.opts.now().UTC()
	r := &run{
		Engine: e,
		result: &Result{
			Job:       e.opts.job,
			DryRun:    e.opts.dryRun,
			FullSync:  e.opts.fullSync,
			StartedAt: started,
		},
	}

	ctx = logging.WithJob(ctx, e.opts.job)
	ctx = logging.WithRunID(ctx, started.Format("20060102T150405.000"))
	logger := logging.FromContext(ctx)
	logger.Info().
		Bool("dry_run", e.opts.dryRun).
		Bool("full_sync", e.opts.fullSync).
		Msg("Starting sync")

	err := r.execute(ctx, started)
	r.result.Duration = e.opts.now().UTC().Sub(started)

	if err != nil {
		logger.Error().Err(err).EmbedObject(r.result).Msg("Sync aborted")
		return r.result, err
	}
	logger.Info().EmbedObject(r.result).Msg("Sync finished: " + r.result.Summary())
	return r.result, nil
}

func (r *run) execute(ctx context.Context, started time.Time) error {
	// The stored watermark is read first so a corrupt file stops the run
	// before any remote call.
	stored, err := r.store.Read(ctx, r.opts.job)
	if err != nil {
		return err
	}

	r.inv, err = tickets.LoadInventory(ctx, r.client, r.opts.pageSize)
	if err != nil {
		return err
	}
	r.policy, err = newPolicy(ctx, &r.opts, r.inv.Index)
	if err != nil {
		return err
	}

	if err := r.deletePhase(ctx); err != nil {
		return err
	}

	effective := stored
	if r.opts.fullSync {
		effective = watermark.Zero()
	}
	r.result.Watermark = effective

	if err := r.upsertPhase(ctx, effective); err != nil {
		return err
	}

	r.result.NextWatermark = watermark.At(started)
	if r.opts.dryRun {
		logging.FromContext(ctx).Info().
			Bool("dry_run", true).
			Str("watermark", r.result.NextWatermark.String()).
			Msg("Dry run, watermark not written")
		return nil
	}
	if err := r.store.Write(ctx, r.opts.job, r.result.NextWatermark); err != nil {
		return err
	}
	r.result.WatermarkWritten = true
	return nil
}

// deletePhase anonymizes every unprotected ticket user missing from the
// complete directory listing.
func (r *run) deletePhase(ctx context.Context) error {
	ids, err := r.directory.FetchIDs(ctx)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info().
		Int("directory_logins", ids.Len()).
		Int("ticket_users", len(r.inv.Users)).
		Msg("Checking for deleted users")

	for _, u := range r.inv.Users {
		if err := ctx.Err(); err != nil {
			return err
		}
		login := directory.NormalizeLogin(u.Login)
		if ids.Has(login) {
			continue
		}
		uctx := logging.WithUserID(logging.WithLogin(ctx, login), u.ID)
		logger := logging.FromContext(uctx)

		if r.policy.isProtected(u) {
			logger.Warn().
				Str("action", ActionIgnore).
				Str("name", strings.TrimSpace(u.Firstname+" "+u.Lastname)).
				Str("email", u.Email).
				Msg("Protected user missing from directory, not deleted")
			r.result.Ignored++
			continue
		}
		if r.isAnonymized(u) {
			logger.Debug().Msg("User already anonymized")
			continue
		}

		anon := tickets.Anonymize(u.Login, r.opts.anonymousDomain)
		err := r.mutate(uctx, ActionDelete, login, u.ID, func(ctx context.Context) error {
			_, err := r.client.AnonymizeUser(ctx, u.ID, anon)
			return err
		})
		if err != nil {
			return err
		}
		r.result.Deleted++
	}
	return nil
}

// upsertPhase creates or updates a ticket user for every directory entry
// changed since the effective watermark.
func (r *run) upsertPhase(ctx context.Context, since watermark.Watermark) error {
	snap, err := r.directory.FetchFull(ctx, since)
	if err != nil {
		return err
	}
	r.result.Skipped += snap.Skipped

	logins := snap.Logins()
	logging.FromContext(ctx).Info().
		Str("since", since.String()).
		Int("entries", len(logins)).
		Msg("Processing changed directory entries")

	for i, login := range logins {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := snap.Records[login]
		lctx := logging.WithLogin(ctx, login)
		logging.FromContext(lctx).Debug().
			Int("entry", i+1).
			Int("of", len(logins)).
			Str("dn", rec.DN).
			Msg("Processing entry")

		existing, found := r.inv.User(login)
		if !found {
			if err := r.create(lctx, login, rec); err != nil {
				return err
			}
			continue
		}
		if err := r.update(logging.WithUserID(lctx, existing.ID), login, existing, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) create(ctx context.Context, login string, rec directory.Record) error {
	draft := r.policy.seed(login)
	if err := r.apply(ctx, mapping.ModeCreate, draft, rec); err != nil {
		return errors.NewMutationError(ActionCreate, login, 0, err)
	}
	err := r.mutate(ctx, ActionCreate, login, 0, func(ctx context.Context) error {
		_, err := r.client.CreateUser(ctx, draft)
		return err
	})
	if err != nil {
		return err
	}
	r.result.Created++
	return nil
}

func (r *run) update(ctx context.Context, login string, existing tickets.User, rec directory.Record) error {
	if r.policy.isProtected(existing) {
		logging.FromContext(ctx).Warn().
			Str("action", ActionIgnore).
			Str("name", strings.TrimSpace(existing.Firstname+" "+existing.Lastname)).
			Str("email", existing.Email).
			Msg("Protected user, not updated")
		r.result.Ignored++
		return nil
	}

	draft := r.policy.seed(login)
	draft.ID = existing.ID
	r.policy.preserveRoles(ctx, draft, existing)

	if err := r.apply(ctx, mapping.ModeUpdate, draft, rec); err != nil {
		return errors.NewMutationError(ActionUpdate, login, existing.ID, err)
	}
	if logger := logging.FromContext(ctx); logger.GetLevel() <= zerolog.DebugLevel {
		changes := tickets.Diff(existing, draft)
		logger.Debug().
			Strs("changed", tickets.ChangedFields(changes)).
			Msg("Update prepared")
		for _, c := range changes {
			logger.Trace().Msg("Change " + c.String())
		}
	}
	err := r.mutate(ctx, ActionUpdate, login, existing.ID, func(ctx context.Context) error {
		_, err := r.client.UpdateUser(ctx, existing.ID, draft)
		return err
	})
	if err != nil {
		return err
	}
	r.result.Updated++
	return nil
}

// apply runs the transform and enforces that it left the login and id alone.
func (r *run) apply(ctx context.Context, mode mapping.Mode, draft *tickets.Draft, rec directory.Record) error {
	login, id := draft.Login, draft.ID
	if err := r.transform.Apply(ctx, mode, draft, rec); err != nil {
		return err
	}
	if draft.Login != login {
		return &errors.ContractError{Mode: string(mode), Login: login, Message: fmt.Sprintf("login changed to %q", draft.Login)}
	}
	if draft.ID != id {
		return &errors.ContractError{Mode: string(mode), Login: login, Message: "id must not be assigned"}
	}
	draft.DedupeRoles()
	logging.FromContext(ctx).Trace().
		Str("mode", string(mode)).
		Strs("roles", draft.Roles).
		Msg("Transform applied")
	return nil
}

// mutate issues call, or only logs it on a dry run.
func (r *run) mutate(ctx context.Context, action, login string, id int, call func(context.Context) error) error {
	logger := logging.FromContext(ctx)
	if r.opts.dryRun {
		logger.Info().
			Str("action", action).
			Bool("dry_run", true).
			Msg("Dry run, " + action + " not sent")
		return nil
	}
	if err := call(ctx); err != nil {
		logger.Error().Err(err).Str("action", action).Msg("Mutation failed")
		return errors.NewMutationError(action, login, id, err)
	}
	logger.Info().Str("action", action).Msg("User " + pastTense(action))
	return nil
}

// isAnonymized reports whether u already carries the anonymized placeholders.
func (r *run) isAnonymized(u tickets.User) bool {
	return u.Firstname == u.Login &&
		u.Lastname == u.Login &&
		strings.EqualFold(u.Email, u.Login+"@"+r.opts.anonymousDomain)
}

func pastTense(action string) string {
	switch action {
	case ActionCreate:
		return "created"
	case ActionUpdate:
		return "updated"
	case ActionDelete:
		return "anonymized"
	}
	return action
}
