package app

import (
	"github.com/agentstation/dirsync/internal/secrets"
)

// masked replaces a plain secret in settings output.
const masked = "********"

// Settings returns the effective configuration keyed like the config file.
// Plain secrets are masked; encrypted ones are shown as written.
func (a *App) Settings() map[string]any {
	c := a.config
	return map[string]any{
		"ticket": map[string]any{
			"base-url":               c.Ticket.BaseURL,
			"token":                  maskSecret(c.Ticket.Token),
			"trust-all-certificates": c.Ticket.TrustAllCertificates,
			"timeout":                c.Ticket.Timeout.String(),
			"page-size":              c.Ticket.PageSize,
		},
		"ldap": map[string]any{
			"host": map[string]any{
				"name":                   c.LDAP.Host,
				"port":                   c.LDAP.Port,
				"ssl":                    c.LDAP.SSL,
				"trust-all-certificates": c.LDAP.TrustAllCertificates,
			},
			"bind": map[string]any{
				"dn":       c.LDAP.BindDN,
				"password": maskSecret(c.LDAP.BindPassword),
			},
			"base-dn": c.LDAP.BaseDN,
			"scope":   c.LDAP.Scope,
			"filter":  c.LDAP.Filter,
			"user": map[string]any{
				"id":         c.LDAP.LoginAttribute,
				"attributes": nonNil(c.LDAP.Attributes),
			},
			"page-size": c.LDAP.PageSize,
		},
		"sync": map[string]any{
			"job-name":                c.Sync.JobName,
			"var-dir":                 c.Sync.VarDir,
			"default-role":            c.Sync.DefaultRole,
			"default-role-id":         c.Sync.DefaultRoleID,
			"protected-role-ids":      nonNil(c.Sync.ProtectedRoleIDs),
			"protected-role-names":    nonNil(c.Sync.ProtectedRoleNames),
			"preserve-untagged-roles": c.Sync.PreserveUntaggedRoles,
			"tag":                     c.Sync.Tag,
			"unpreserved-roles":       nonNil(c.Sync.UnpreservedRoles),
			"mapping": map[string]any{
				"type":    c.Sync.MappingType,
				"file":    c.Sync.MappingFile,
				"timeout": c.Sync.MappingTimeout.String(),
			},
			"error-exit-delay": c.Sync.ErrorExitDelay.String(),
		},
		"secrets": map[string]any{
			"key-file": c.Secrets.KeyFile,
		},
		"log": map[string]any{
			"level":  c.BaseLogLevel,
			"format": c.LogFormat,
			"output": c.LogOutput,
		},
	}
}

func maskSecret(value string) string {
	if value == "" || secrets.IsEncrypted(value) {
		return value
	}
	return masked
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
