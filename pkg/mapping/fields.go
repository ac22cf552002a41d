package mapping

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"slices"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/tickets"
)

// FieldRules is the YAML form of a FieldTransform:
//
//	fields:
//	  firstname: givenName
//	  lastname: sn
//	  email: mail
//	constants:
//	  source: ldap
//	  active: true
//	createOnly: [password]
//	roles:
//	  - attribute: memberOf
//	    pattern: '^cn=sales,'
//	    role: Syncer-Sales
type FieldRules struct {
	Fields     map[string]string `yaml:"fields"`
	Constants  map[string]any    `yaml:"constants"`
	CreateOnly []string          `yaml:"createOnly"`
	Roles      []RoleRule        `yaml:"roles"`
}

// RoleRule adds Role when any value of Attribute matches Pattern.
// An empty Pattern matches any value.
type RoleRule struct {
	Attribute string `yaml:"attribute"`
	Pattern   string `yaml:"pattern"`
	Role      string `yaml:"role"`

	re *regexp.Regexp
}

// FieldTransform copies attributes and constants into the draft by rule.
type FieldTransform struct {
	rules FieldRules
}

var _ Transform = (*FieldTransform)(nil)

// LoadFields reads a YAML rule file.
func LoadFields(path string) (*FieldTransform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var rules FieldRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return NewFields(rules)
}

// NewFields validates rules and compiles their role patterns.
func NewFields(rules FieldRules) (*FieldTransform, error) {
	for target := range rules.Fields {
		if target == "login" || target == "id" {
			return nil, errors.NewValidationError("fields."+target, rules.Fields[target], "field is owned by the sync engine")
		}
	}
	for target := range rules.Constants {
		if target == "login" || target == "id" {
			return nil, errors.NewValidationError("constants."+target, rules.Constants[target], "field is owned by the sync engine")
		}
	}
	for i := range rules.Roles {
		r := &rules.Roles[i]
		if r.Attribute == "" || r.Role == "" {
			return nil, errors.NewValidationError("roles", r, "role rule needs attribute and role")
		}
		if r.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, errors.NewValidationError("roles.pattern", r.Pattern, err.Error())
		}
		r.re = re
	}
	return &FieldTransform{rules: rules}, nil
}

// Apply sets every configured field on draft. Fields listed in createOnly are
// left alone in update mode; attributes absent from source are not written.
func (f *FieldTransform) Apply(_ context.Context, mode Mode, draft *tickets.Draft, source directory.Record) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	values := map[string]any{}
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	skip := func(target string) bool {
		return mode == ModeUpdate && slices.Contains(f.rules.CreateOnly, target)
	}
	for target, value := range f.rules.Constants {
		if !skip(target) {
			values[target] = value
		}
	}
	for target, attr := range f.rules.Fields {
		if skip(target) {
			continue
		}
		if v := source.GetAll(attr); len(v) > 0 {
			values[target] = v[0]
		}
	}

	merged, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(merged, draft); err != nil {
		return &errors.ContractError{Mode: string(mode), Login: draft.Login, Message: err.Error()}
	}

	for _, rule := range f.rules.Roles {
		for _, v := range source.GetAll(rule.Attribute) {
			if rule.re == nil || rule.re.MatchString(v) {
				draft.AddRole(rule.Role)
				break
			}
		}
	}
	return nil
}
