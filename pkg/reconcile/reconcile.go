// Package reconcile implements the one-shot comparison-and-mutation pass
// that converges a virtual network towards its desired specification.
//
// A pass looks the network up by id or name over the pool listing,
// decides whether a create, update (including ownership transfer), or
// delete is required, issues the corresponding RPC calls, and reports a
// changed/unchanged Result suitable for idempotent re-runs. There are no
// retries and no locking; the first error aborts the pass.
package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nebulaops/vnetctl/pkg/constants"
	"github.com/nebulaops/vnetctl/pkg/errors"
	"github.com/nebulaops/vnetctl/pkg/logging"
	"github.com/nebulaops/vnetctl/pkg/template"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// Client is the remote API surface the reconciler needs. The production
// implementation lives in internal/oneapi; tests substitute a fake.
type Client interface {
	// Networks lists the virtual networks visible to the caller.
	Networks(ctx context.Context) ([]vnet.Network, error)

	// Allocate creates a network from a template body and returns its id.
	Allocate(ctx context.Context, body string) (int, error)

	// Update replaces the whole template of an existing network.
	Update(ctx context.Context, id int, body string) error

	// Chown transfers ownership. A uid or gid of -1 leaves that side
	// untouched.
	Chown(ctx context.Context, id, uid, gid int) error

	// Delete removes a network.
	Delete(ctx context.Context, id int) error
}

// Reconciler performs reconciliation passes against a Client.
type Reconciler struct {
	client Client
	dryRun bool
	logger *zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithDryRun makes the pass report what would change without issuing any
// mutating calls.
func WithDryRun(enabled bool) Option {
	return func(r *Reconciler) error {
		r.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger used during passes.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Reconciler) error {
		if logger == nil {
			return errors.NewValidationError("logger", nil, "logger must not be nil")
		}
		r.logger = logger
		return nil
	}
}

// New creates a Reconciler for the given client.
func New(client Client, opts ...Option) (*Reconciler, error) {
	if client == nil {
		return nil, errors.NewValidationError("client", nil, "client must not be nil")
	}

	r := &Reconciler{
		client: client,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return r, nil
}

// Reconcile runs a single pass for the given spec and returns the outcome.
func (r *Reconciler) Reconcile(ctx context.Context, spec vnet.Spec) (*Result, error) {
	start := time.Now()

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	state, _ := vnet.ParseState(string(spec.State))

	r.logger.Debug().
		Str("network", spec.Handle()).
		Str("state", string(state)).
		Bool("dry_run", r.dryRun).
		Msg("starting reconciliation pass")

	observed, err := r.lookup(ctx, spec)
	if err != nil {
		return nil, err
	}

	var result *Result
	switch state {
	case vnet.StateQuery:
		result, err = r.query(spec, observed)
	case vnet.StateAbsent:
		result, err = r.absent(ctx, observed)
	default:
		result, err = r.present(ctx, spec, observed)
	}
	if err != nil {
		return nil, err
	}

	end := time.Now()
	result.Metadata = ResultMetadata{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		DryRun:    r.dryRun,
	}

	r.logger.Info().
		Str("network", spec.Handle()).
		Str("action", string(result.Action)).
		Bool("changed", result.Changed).
		Dur("duration", result.Metadata.Duration).
		Msg("reconciliation pass finished")

	return result, nil
}

// Query looks the network up without mutating anything.
func (r *Reconciler) Query(ctx context.Context, spec vnet.Spec) (*vnet.Network, error) {
	spec.State = vnet.StateQuery
	result, err := r.Reconcile(ctx, spec)
	if err != nil {
		return nil, err
	}
	return result.Network, nil
}

// lookup finds the network by id or name over the pool listing. A nil
// network with a nil error means not found.
func (r *Reconciler) lookup(ctx context.Context, spec vnet.Spec) (*vnet.Network, error) {
	networks, err := r.client.Networks(ctx)
	if err != nil {
		return nil, errors.WrapResource("list", "network", "", err)
	}

	for i := range networks {
		if spec.ID != nil {
			if networks[i].ID == *spec.ID {
				return &networks[i], nil
			}
			continue
		}
		if networks[i].Name == spec.Name {
			return &networks[i], nil
		}
	}
	return nil, nil
}

// lookupByID re-reads the pool after a mutation to report fresh state.
func (r *Reconciler) lookupByID(ctx context.Context, id int) (*vnet.Network, error) {
	return r.lookup(ctx, vnet.Spec{ID: &id})
}

func (r *Reconciler) query(spec vnet.Spec, observed *vnet.Network) (*Result, error) {
	if observed == nil {
		return nil, errors.NewNotFoundError("network", spec.Handle())
	}
	return &Result{
		Changed: false,
		Action:  ActionUnchanged,
		Network: observed,
	}, nil
}

func (r *Reconciler) absent(ctx context.Context, observed *vnet.Network) (*Result, error) {
	if observed == nil {
		return &Result{Changed: false, Action: ActionAbsent}, nil
	}

	if !r.dryRun {
		if err := r.client.Delete(ctx, observed.ID); err != nil {
			return nil, errors.WrapResource("delete", "network", strconv.Itoa(observed.ID), err)
		}
	}
	return &Result{Changed: true, Action: ActionDeleted}, nil
}

func (r *Reconciler) present(ctx context.Context, spec vnet.Spec, observed *vnet.Network) (*Result, error) {
	if observed == nil {
		// A missing network addressed by id cannot be created: the id is
		// assigned by the frontend.
		if spec.ID != nil {
			return nil, errors.NewNotFoundError("network", spec.Handle())
		}
		return r.create(ctx, spec)
	}
	return r.update(ctx, spec, observed)
}

func (r *Reconciler) create(ctx context.Context, spec vnet.Spec) (*Result, error) {
	changeset := &Changeset{}
	desired, err := spec.DesiredTemplate()
	if err != nil {
		return nil, err
	}
	changeset.Changes = diffDocuments(template.Document{}, desired)

	if r.dryRun {
		return &Result{
			Changed:   true,
			Action:    ActionCreated,
			Changeset: changeset,
		}, nil
	}

	// The frontend takes the name as a regular template attribute.
	body := fmt.Sprintf("NAME = %q\n%s", spec.Name, spec.Template)
	id, err := r.client.Allocate(ctx, body)
	if err != nil {
		return nil, errors.WrapResource("create", "network", spec.Name, err)
	}

	// Refresh before any ownership transfer: the pool listing only
	// covers the session user's networks, so a network chowned away
	// would no longer be visible.
	network, err := r.lookupByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if network == nil {
		return nil, errors.NewNotFoundError("network", strconv.Itoa(id))
	}

	if uid, gid, needed := chownArgs(spec, nil); needed {
		if err := r.client.Chown(ctx, id, uid, gid); err != nil {
			return nil, errors.WrapResource("chown", "network", strconv.Itoa(id), err)
		}
		network = ownershipApplied(network, uid, gid)
	}

	return &Result{
		Changed:   true,
		Action:    ActionCreated,
		Network:   network,
		Changeset: changeset,
	}, nil
}

func (r *Reconciler) update(ctx context.Context, spec vnet.Spec, observed *vnet.Network) (*Result, error) {
	desired, err := spec.DesiredTemplate()
	if err != nil {
		return nil, err
	}

	changeset := &Changeset{Changes: diffDocuments(observed.Template, desired)}
	templateChanged := !observed.Template.Equal(desired)

	uid, gid, chownNeeded := chownArgs(spec, observed)
	if chownNeeded {
		if uid != constants.OwnerUnchanged {
			changeset.Changes = append(changeset.Changes, FieldChange{
				Path:     "owner",
				OldValue: strconv.Itoa(observed.OwnerID),
				NewValue: strconv.Itoa(uid),
				Type:     ChangeTypeUpdate,
			})
		}
		if gid != constants.OwnerUnchanged {
			changeset.Changes = append(changeset.Changes, FieldChange{
				Path:     "group",
				OldValue: strconv.Itoa(observed.GroupID),
				NewValue: strconv.Itoa(gid),
				Type:     ChangeTypeUpdate,
			})
		}
	}

	changed := templateChanged || chownNeeded
	if !changed {
		return &Result{
			Changed:   false,
			Action:    ActionUnchanged,
			Network:   observed,
			Changeset: changeset,
		}, nil
	}

	if r.dryRun {
		return &Result{
			Changed:   true,
			Action:    ActionConfigured,
			Network:   observed,
			Changeset: changeset,
		}, nil
	}

	network := observed
	if templateChanged {
		if err := r.client.Update(ctx, observed.ID, spec.Template); err != nil {
			return nil, errors.WrapResource("update", "network", strconv.Itoa(observed.ID), err)
		}
		// Refresh before any ownership transfer, while the network is
		// still visible in the session user's pool listing.
		network, err = r.lookupByID(ctx, observed.ID)
		if err != nil {
			return nil, err
		}
		if network == nil {
			return nil, errors.NewNotFoundError("network", strconv.Itoa(observed.ID))
		}
	}
	if chownNeeded {
		if err := r.client.Chown(ctx, observed.ID, uid, gid); err != nil {
			return nil, errors.WrapResource("chown", "network", strconv.Itoa(observed.ID), err)
		}
		network = ownershipApplied(network, uid, gid)
	}

	return &Result{
		Changed:   true,
		Action:    ActionConfigured,
		Network:   network,
		Changeset: changeset,
	}, nil
}

// chownArgs works out the one.vn.chown arguments for a spec. Either side
// is -1 when unset or already matching; needed reports whether a call
// must be issued at all. With a nil observed network (the create path) any
// requested owner or group is applied unconditionally.
func chownArgs(spec vnet.Spec, observed *vnet.Network) (uid, gid int, needed bool) {
	uid, gid = constants.OwnerUnchanged, constants.OwnerUnchanged
	if spec.Owner != nil && (observed == nil || *spec.Owner != observed.OwnerID) {
		uid = *spec.Owner
	}
	if spec.Group != nil && (observed == nil || *spec.Group != observed.GroupID) {
		gid = *spec.Group
	}
	return uid, gid, uid != constants.OwnerUnchanged || gid != constants.OwnerUnchanged
}

// ownershipApplied folds a completed ownership transfer into a copy of
// the record. A network chowned to another user drops out of the session
// user's pool listing, so the result cannot be re-fetched; the new owner
// and group names are unknown to the session and are cleared with the
// ids updated in place.
func ownershipApplied(n *vnet.Network, uid, gid int) *vnet.Network {
	out := *n
	if uid != constants.OwnerUnchanged {
		out.OwnerID = uid
		out.OwnerName = ""
	}
	if gid != constants.OwnerUnchanged {
		out.GroupID = gid
		out.GroupName = ""
	}
	return &out
}
