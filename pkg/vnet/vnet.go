// Package vnet defines the virtual network resource model shared by the
// reconciler, the RPC client, and the CLI.
package vnet

import (
	"strconv"

	"github.com/nebulaops/vnetctl/pkg/errors"
	"github.com/nebulaops/vnetctl/pkg/template"
)

// State is the desired state of a network in a Spec.
type State string

const (
	// StatePresent ensures the network exists with the given template.
	StatePresent State = "present"

	// StateAbsent ensures the network does not exist.
	StateAbsent State = "absent"

	// StateQuery reads the network without mutating it.
	StateQuery State = "query"
)

// ParseState validates a state string.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePresent, StateAbsent, StateQuery:
		return State(s), nil
	case "":
		return StatePresent, nil
	default:
		return "", errors.NewValidationError("state", s, "must be one of: present, absent, query")
	}
}

// Network is the observed state of a virtual network as reported by the
// frontend pool.
type Network struct {
	ID         int               `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Template   template.Document `json:"template" yaml:"template"`
	OwnerID    int               `json:"owner_id" yaml:"owner_id"`
	OwnerName  string            `json:"owner_name" yaml:"owner_name"`
	GroupID    int               `json:"group_id" yaml:"group_id"`
	GroupName  string            `json:"group_name" yaml:"group_name"`
	ClusterIDs []int             `json:"clusters" yaml:"clusters"`
}

// Spec is the desired state of a virtual network.
//
// ID and Name are mutually exclusive lookup handles; exactly one must be
// set. Pointers distinguish "unset" from zero, since 0 is a valid
// OpenNebula id.
type Spec struct {
	ID       *int   `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	Owner    *int   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group    *int   `json:"group,omitempty" yaml:"group,omitempty"`
	State    State  `json:"state,omitempty" yaml:"state,omitempty"`
}

// Handle returns a human-readable identifier for log and error messages.
func (s Spec) Handle() string {
	if s.ID != nil {
		return strconv.Itoa(*s.ID)
	}
	return s.Name
}

// Validate checks the argument constraints the original module enforced:
// id and name are mutually exclusive, one of them is required, and a
// present network needs a template.
func (s Spec) Validate() error {
	if s.ID != nil && s.Name != "" {
		return errors.NewValidationError("id", *s.ID, "id and name are mutually exclusive")
	}
	if s.ID == nil && s.Name == "" {
		return errors.NewValidationError("name", nil, "one of id or name is required")
	}
	if _, err := ParseState(string(s.State)); err != nil {
		return err
	}
	if s.State == StatePresent || s.State == "" {
		if s.Template == "" {
			return errors.NewValidationError("template", nil, "template is required when state is present")
		}
		if _, err := template.Parse(s.Template); err != nil {
			return errors.WrapValidation("template", err)
		}
	}
	return nil
}

// DesiredTemplate parses the spec template body. Validate must have
// passed beforehand; a parse failure here is reported as a validation
// error all the same.
func (s Spec) DesiredTemplate() (template.Document, error) {
	doc, err := template.Parse(s.Template)
	if err != nil {
		return template.Document{}, errors.WrapValidation("template", err)
	}
	return doc, nil
}
