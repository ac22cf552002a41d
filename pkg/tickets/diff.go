package tickets

import (
	"slices"
	"strconv"
	"strings"
)

// FieldChange represents a change to a single user field.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}

// String renders the change as field: old -> new.
func (c FieldChange) String() string {
	return c.Field + ": " + strconv.Quote(c.OldValue) + " -> " + strconv.Quote(c.NewValue)
}

// Diff lists the fields an update with draft would change on existing.
// Only fields the draft sets are compared; an unset field leaves the
// stored value alone and is not a change.
func Diff(existing User, draft *Draft) []FieldChange {
	var changes []FieldChange
	str := func(field, before, after string) {
		if after != "" && before != after {
			changes = append(changes, FieldChange{Field: field, OldValue: before, NewValue: after})
		}
	}
	flag := func(field string, before bool, after *bool) {
		if after != nil && before != *after {
			changes = append(changes, FieldChange{
				Field:    field,
				OldValue: strconv.FormatBool(before),
				NewValue: strconv.FormatBool(*after),
			})
		}
	}

	str("firstname", existing.Firstname, draft.Firstname)
	str("lastname", existing.Lastname, draft.Lastname)
	str("email", existing.Email, draft.Email)
	str("organization", existing.Organization, draft.Organization)
	str("department", existing.Department, draft.Department)
	str("source", existing.Source, draft.Source)
	flag("active", existing.Active, draft.Active)
	flag("verified", existing.Verified, draft.Verified)
	flag("vip", existing.VIP, draft.VIP)

	// Role names are only comparable when the ticket system expanded them.
	if len(existing.Roles) > 0 && len(draft.Roles) > 0 {
		before, after := sortedFold(existing.Roles), sortedFold(draft.Roles)
		if !slices.Equal(before, after) {
			changes = append(changes, FieldChange{
				Field:    "roles",
				OldValue: strings.Join(before, ","),
				NewValue: strings.Join(after, ","),
			})
		}
	}
	return changes
}

// ChangedFields returns the field names of changes.
func ChangedFields(changes []FieldChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Field)
	}
	return out
}

func sortedFold(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.ToLower(n))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
