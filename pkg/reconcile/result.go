package reconcile

import (
	"fmt"
	"time"

	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// Action describes what the reconciliation pass did to the network.
type Action string

const (
	// ActionCreated indicates the network was allocated.
	ActionCreated Action = "created"

	// ActionConfigured indicates the template was replaced and/or
	// ownership was transferred.
	ActionConfigured Action = "configured"

	// ActionDeleted indicates the network was deleted.
	ActionDeleted Action = "deleted"

	// ActionUnchanged indicates the observed state already matched.
	ActionUnchanged Action = "unchanged"

	// ActionAbsent indicates the network was already gone.
	ActionAbsent Action = "absent"
)

// Result represents the outcome of a reconciliation pass.
type Result struct {
	// Changed indicates whether any mutation was (or, in dry-run mode,
	// would be) issued.
	Changed bool `json:"changed" yaml:"changed"`

	// Action is what the pass did.
	Action Action `json:"action" yaml:"action"`

	// Network is the observed record after the pass. It is nil when the
	// network does not exist (absent, deleted, or dry-run create).
	Network *vnet.Network `json:"network,omitempty" yaml:"network,omitempty"`

	// Changeset contains the attribute-level differences that drove an
	// update, including ownership transfers.
	Changeset *Changeset `json:"changeset,omitempty" yaml:"changeset,omitempty"`

	// Metadata about the reconciliation pass.
	Metadata ResultMetadata `json:"metadata" yaml:"metadata"`
}

// ResultMetadata contains metadata about the reconciliation pass.
type ResultMetadata struct {
	// StartTime when reconciliation started
	StartTime time.Time `json:"start_time" yaml:"start_time"`

	// EndTime when reconciliation completed
	EndTime time.Time `json:"end_time" yaml:"end_time"`

	// Duration of the reconciliation
	Duration time.Duration `json:"duration" yaml:"duration"`

	// DryRun indicates if this was a dry-run
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// HasChanges returns true if any attribute-level changes were detected.
func (r *Result) HasChanges() bool {
	return r.Changeset.HasChanges()
}

// String returns a one-line summary suitable for log output.
func (r *Result) String() string {
	subject := "network"
	if r.Network != nil {
		subject = fmt.Sprintf("network %s (id %d)", r.Network.Name, r.Network.ID)
	}
	if r.Changeset.HasChanges() {
		return fmt.Sprintf("%s %s: %s", subject, r.Action, r.Changeset)
	}
	return fmt.Sprintf("%s %s", subject, r.Action)
}
