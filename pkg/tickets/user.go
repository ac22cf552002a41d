// Package tickets models the ticket system's users and roles and loads the
// complete inventory a sync run reconciles against.
package tickets

import (
	"encoding/json"
	"strings"
	"time"
)

// User is a ticket system account as returned by the REST API.
type User struct {
	ID             int        `json:"id"`
	Login          string     `json:"login"`
	Firstname      string     `json:"firstname,omitempty"`
	Lastname       string     `json:"lastname,omitempty"`
	Email          string     `json:"email,omitempty"`
	OrganizationID *int       `json:"organization_id,omitempty"`
	Organization   string     `json:"organization,omitempty"`
	Department     string     `json:"department,omitempty"`
	Source         string     `json:"source,omitempty"`
	Active         bool       `json:"active"`
	Verified       bool       `json:"verified"`
	VIP            bool       `json:"vip"`
	RoleIDs        []int      `json:"role_ids,omitempty"`
	Roles          []string   `json:"roles,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at,omitzero"`
	UpdatedAt      time.Time  `json:"updated_at,omitzero"`
}

// HasRole reports whether the user holds role id.
func (u User) HasRole(id int) bool {
	for _, r := range u.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}

// Draft is the payload of a create or update. The mapping transform fills
// its fields; ID is owned by the engine and never serialized.
// Keys the struct does not model are carried in Extra so custom ticket
// system attributes survive the round trip through a transform.
type Draft struct {
	ID int `json:"-"`

	Login           string              `json:"login"`
	Firstname       string              `json:"firstname,omitempty"`
	Lastname        string              `json:"lastname,omitempty"`
	Email           string              `json:"email,omitempty"`
	Password        string              `json:"password,omitempty"`
	OrganizationID  *int                `json:"organization_id,omitempty"`
	Organization    string              `json:"organization,omitempty"`
	Web             string              `json:"web,omitempty"`
	Phone           string              `json:"phone,omitempty"`
	Fax             string              `json:"fax,omitempty"`
	Mobile          string              `json:"mobile,omitempty"`
	Department      string              `json:"department,omitempty"`
	Note            string              `json:"note,omitempty"`
	Source          string              `json:"source,omitempty"`
	CustomerNumber  string              `json:"customernumber,omitempty"`
	VIP             *bool               `json:"vip,omitempty"`
	Verified        *bool               `json:"verified,omitempty"`
	Active          *bool               `json:"active,omitempty"`
	OutOfOffice     *bool               `json:"out_of_office,omitempty"`
	Preferences     map[string]any      `json:"preferences,omitempty"`
	Roles           []string            `json:"roles,omitempty"`
	RoleIDs         []int               `json:"role_ids,omitempty"`
	OrganizationIDs []int               `json:"organization_ids,omitempty"`
	GroupIDs        map[string][]string `json:"group_ids,omitempty"`

	Extra map[string]any `json:"-"`
}

// NewDraft returns a draft for login.
func NewDraft(login string) *Draft {
	return &Draft{Login: login}
}

// AddRole appends name unless the draft already holds it (case-insensitive).
func (d *Draft) AddRole(name string) {
	name = strings.TrimSpace(name)
	if name == "" || d.HasRole(name) {
		return
	}
	d.Roles = append(d.Roles, name)
}

// HasRole reports whether the draft holds name (case-insensitive).
func (d *Draft) HasRole(name string) bool {
	for _, r := range d.Roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// DedupeRoles removes blank and repeated role names, keeping the first occurrence.
func (d *Draft) DedupeRoles() {
	roles := d.Roles
	d.Roles = nil
	for _, r := range roles {
		d.AddRole(r)
	}
}

// draftFields is an alias without methods, used to avoid MarshalJSON recursion.
type draftFields Draft

// MarshalJSON encodes the modeled fields followed by Extra. Modeled fields win
// on key collisions.
func (d Draft) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(draftFields(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, taken := merged[k]; !taken && !draftKeys[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes modeled fields and collects every other key in Extra.
// An "id" key is dropped; the id is never taken from a payload.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var fields draftFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id := d.ID
	*d = Draft(fields)
	d.ID = id
	d.Extra = nil
	for k, v := range raw {
		if draftKeys[k] || k == "id" {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[k] = v
	}
	return nil
}

// draftKeys are the JSON keys modeled by Draft.
var draftKeys = map[string]bool{
	"login": true, "firstname": true, "lastname": true, "email": true,
	"password": true, "organization_id": true, "organization": true,
	"web": true, "phone": true, "fax": true, "mobile": true,
	"department": true, "note": true, "source": true, "customernumber": true,
	"vip": true, "verified": true, "active": true, "out_of_office": true,
	"preferences": true, "roles": true, "role_ids": true,
	"organization_ids": true, "group_ids": true,
}

// AnonymousUser replaces a user's personal data in place of a hard delete.
// Every field is always serialized so the ticket system clears it.
type AnonymousUser struct {
	OrganizationID           *int                `json:"organization_id"`
	Login                    string              `json:"login"`
	Firstname                string              `json:"firstname"`
	Lastname                 string              `json:"lastname"`
	Email                    string              `json:"email"`
	Image                    any                 `json:"image"`
	ImageSource              any                 `json:"image_source"`
	Web                      *string             `json:"web"`
	Phone                    *string             `json:"phone"`
	Fax                      *string             `json:"fax"`
	Mobile                   *string             `json:"mobile"`
	Department               *string             `json:"department"`
	VIP                      bool                `json:"vip"`
	Verified                 bool                `json:"verified"`
	Active                   bool                `json:"active"`
	PrepareForDeletion       bool                `json:"prepare_for_deletion"`
	Note                     *string             `json:"note"`
	Source                   *string             `json:"source"`
	OutOfOffice              bool                `json:"out_of_office"`
	OutOfOfficeStartAt       *time.Time          `json:"out_of_office_start_at"`
	OutOfOfficeEndAt         *time.Time          `json:"out_of_office_end_at"`
	OutOfOfficeReplacementID *int                `json:"out_of_office_replacement_id"`
	Preferences              map[string]any      `json:"preferences"`
	CustomerNumber           *string             `json:"customernumber"`
	Location                 *string             `json:"location"`
	Building                 *string             `json:"building"`
	Room                     *string             `json:"room"`
	Roles                    []string            `json:"roles"`
	RoleIDs                  []int               `json:"role_ids"`
	OrganizationIDs          []int               `json:"organization_ids"`
	AuthorizationIDs         []int               `json:"authorization_ids"`
	OverviewSortingIDs       []int               `json:"overview_sorting_ids"`
	GroupIDs                 map[string][]string `json:"group_ids"`
}

// Anonymize returns the payload that overwrites the personal data of login.
func Anonymize(login, emailDomain string) *AnonymousUser {
	return &AnonymousUser{
		Login:              login,
		Firstname:          login,
		Lastname:           login,
		Email:              login + "@" + emailDomain,
		PrepareForDeletion: true,
	}
}
