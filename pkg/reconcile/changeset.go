package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nebulaops/vnetctl/pkg/template"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an attribute was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an attribute was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an attribute was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific attribute.
type FieldChange struct {
	Path     string     `json:"path" yaml:"path"`           // Attribute path, e.g. "AR" or "owner"
	OldValue string     `json:"old,omitempty" yaml:"old,omitempty"` // Previous value (string representation)
	NewValue string     `json:"new,omitempty" yaml:"new,omitempty"` // New value (string representation)
	Type     ChangeType `json:"type" yaml:"type"`
}

// Changeset represents the attribute-level difference between the observed
// and desired network.
type Changeset struct {
	Changes []FieldChange `json:"changes" yaml:"changes"`
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c != nil && len(c.Changes) > 0
}

// Len returns the number of changes.
func (c *Changeset) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Changes)
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "no changes detected"
	}

	var added, updated, removed int
	for _, ch := range c.Changes {
		switch ch.Type {
		case ChangeTypeAdd:
			added++
		case ChangeTypeUpdate:
			updated++
		case ChangeTypeRemove:
			removed++
		}
	}

	parts := []string{}
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", updated))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	return strings.Join(parts, ", ")
}

// diffDocuments computes attribute-level changes between the observed and
// desired template. Repeated keys are compared as ordered groups.
func diffDocuments(observed, desired template.Document) []FieldChange {
	oldGroups := groupRendered(observed)
	newGroups := groupRendered(desired)

	keys := make([]string, 0, len(oldGroups)+len(newGroups))
	seen := make(map[string]bool, len(oldGroups)+len(newGroups))
	for key := range oldGroups {
		keys = append(keys, key)
		seen[key] = true
	}
	for key := range newGroups {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var changes []FieldChange
	for _, key := range keys {
		oldVal, inOld := oldGroups[key]
		newVal, inNew := newGroups[key]
		switch {
		case !inOld:
			changes = append(changes, FieldChange{Path: key, NewValue: newVal, Type: ChangeTypeAdd})
		case !inNew:
			changes = append(changes, FieldChange{Path: key, OldValue: oldVal, Type: ChangeTypeRemove})
		case oldVal != newVal:
			changes = append(changes, FieldChange{Path: key, OldValue: oldVal, NewValue: newVal, Type: ChangeTypeUpdate})
		}
	}
	return changes
}

// groupRendered renders every value of each key into a single canonical
// string so repeated keys compare as a unit.
func groupRendered(doc template.Document) map[string]string {
	groups := make(map[string][]string)
	for _, p := range doc.Pairs {
		groups[p.Key] = append(groups[p.Key], renderValue(p.Value))
	}
	out := make(map[string]string, len(groups))
	for key, vals := range groups {
		out[key] = strings.Join(vals, "; ")
	}
	return out
}

// renderValue produces a compact, human-readable form of a template value
// for changeset output.
func renderValue(v template.Value) string {
	if !v.IsVector() {
		return v.Str
	}
	parts := make([]string, len(v.Vector))
	for i, sub := range v.Vector {
		parts[i] = sub.Key + "=" + sub.Value.Str
	}
	sort.Strings(parts)
	return "[" + strings.Join(parts, ", ") + "]"
}
