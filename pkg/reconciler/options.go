package reconciler

import (
	"strings"
	"time"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
)

// options is the immutable run configuration of an Engine.
// It is built once by New and never changed afterwards.
type options struct {
	job                string
	defaultRole        string
	defaultRoleID      int
	protectedRoleIDs   []int
	protectedRoleNames []string
	preserveRoles      bool
	tag                string
	unpreservedRoles   []string
	anonymousDomain    string
	pageSize           int
	dryRun             bool
	fullSync           bool
	now                func() time.Time
}

func defaultOptions() *options {
	return &options{
		job:                constants.DefaultJobName,
		protectedRoleNames: []string{constants.AdminRoleName},
		unpreservedRoles:   []string{constants.AgentRoleName},
		anonymousDomain:    constants.AnonymousEmailDomain,
		pageSize:           constants.DefaultTicketPageSize,
		now:                time.Now,
	}
}

// Option is a function that configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns engine options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithJobName sets the job name used for the watermark file and log context.
func WithJobName(job string) Option {
	return func(o *options) error {
		job = strings.TrimSpace(job)
		if job == "" {
			return &errors.ValidationError{Field: "sync.job-name", Message: "cannot be empty"}
		}
		if strings.ContainsAny(job, `/\`) {
			return &errors.ValidationError{Field: "sync.job-name", Value: job, Message: "must not contain path separators"}
		}
		o.job = job
		return nil
	}
}

// WithDefaultRole sets the role every synced user receives.
func WithDefaultRole(name string) Option {
	return func(o *options) error {
		o.defaultRole = strings.TrimSpace(name)
		return nil
	}
}

// WithDefaultRoleID sets the default role by id. The name is resolved at run
// start and only used when no name was configured.
func WithDefaultRoleID(id int) Option {
	return func(o *options) error {
		if id < 0 {
			return &errors.ValidationError{Field: "sync.default-role-id", Value: id, Message: "must not be negative"}
		}
		o.defaultRoleID = id
		return nil
	}
}

// WithProtectedRoleIDs replaces the role ids that protect a user from changes.
func WithProtectedRoleIDs(ids ...int) Option {
	return func(o *options) error {
		o.protectedRoleIDs = append([]int(nil), ids...)
		return nil
	}
}

// WithProtectedRoleNames replaces the role names that protect a user from
// changes. Names are resolved against the ticket roles at run start.
func WithProtectedRoleNames(names ...string) Option {
	return func(o *options) error {
		o.protectedRoleNames = nil
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				o.protectedRoleNames = append(o.protectedRoleNames, n)
			}
		}
		return nil
	}
}

// WithRolePreservation carries an existing user's untagged roles into updates.
func WithRolePreservation(enabled bool) Option {
	return func(o *options) error {
		o.preserveRoles = enabled
		return nil
	}
}

// WithTag sets the role name prefix owned by the syncer.
func WithTag(prefix string) Option {
	return func(o *options) error {
		o.tag = prefix
		return nil
	}
}

// WithUnpreservedRoles replaces the role names that are never carried over on update.
func WithUnpreservedRoles(names ...string) Option {
	return func(o *options) error {
		o.unpreservedRoles = append([]string(nil), names...)
		return nil
	}
}

// WithAnonymousDomain sets the email domain of anonymized users.
func WithAnonymousDomain(domain string) Option {
	return func(o *options) error {
		domain = strings.TrimPrefix(strings.TrimSpace(domain), "@")
		if domain == "" {
			return &errors.ValidationError{Field: "anonymous-domain", Message: "cannot be empty"}
		}
		o.anonymousDomain = domain
		return nil
	}
}

// WithPageSize sets the per_page value for ticket listings.
func WithPageSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "ticket.page-size", Value: n, Message: "must be positive"}
		}
		o.pageSize = n
		return nil
	}
}

// WithDryRun logs mutations instead of issuing them and skips the watermark write.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithFullSync ignores the stored watermark.
func WithFullSync(enabled bool) Option {
	return func(o *options) error {
		o.fullSync = enabled
		return nil
	}
}

// WithClock sets the time source used for the run start and the new watermark.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		o.now = now
		return nil
	}
}
