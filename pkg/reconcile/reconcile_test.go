package reconcile_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebulaops/vnetctl/pkg/errors"
	"github.com/nebulaops/vnetctl/pkg/logging"
	"github.com/nebulaops/vnetctl/pkg/reconcile"
	"github.com/nebulaops/vnetctl/pkg/template"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

func intPtr(i int) *int { return &i }

// fakeClient implements reconcile.Client against an in-memory pool,
// recording every call for assertions. With sessionUID set the listing
// only returns networks owned by that uid, matching the "mine" pool
// filter the production client lists with.
type fakeClient struct {
	networks   []vnet.Network
	nextID     int
	calls      []string
	sessionUID *int

	listErr     error
	allocateErr error
	updateErr   error
	chownErr    error
	deleteErr   error
}

func newFakeClient(networks ...vnet.Network) *fakeClient {
	nextID := 1
	for _, n := range networks {
		if n.ID >= nextID {
			nextID = n.ID + 1
		}
	}
	return &fakeClient{networks: networks, nextID: nextID}
}

func (f *fakeClient) Networks(_ context.Context) ([]vnet.Network, error) {
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]vnet.Network, 0, len(f.networks))
	for _, n := range f.networks {
		if f.sessionUID != nil && n.OwnerID != *f.sessionUID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeClient) Allocate(_ context.Context, body string) (int, error) {
	f.calls = append(f.calls, "allocate")
	if f.allocateErr != nil {
		return 0, f.allocateErr
	}
	doc, err := template.Parse(body)
	if err != nil {
		return 0, err
	}
	name := doc.GetString("NAME")
	var pairs []template.Pair
	for _, p := range doc.Pairs {
		if p.Key != "NAME" {
			pairs = append(pairs, p)
		}
	}
	id := f.nextID
	f.nextID++
	f.networks = append(f.networks, vnet.Network{
		ID:        id,
		Name:      name,
		Template:  template.Document{Pairs: pairs},
		OwnerID:   0,
		OwnerName: "oneadmin",
		GroupID:   0,
		GroupName: "oneadmin",
	})
	return id, nil
}

func (f *fakeClient) Update(_ context.Context, id int, body string) error {
	f.calls = append(f.calls, fmt.Sprintf("update(%d)", id))
	if f.updateErr != nil {
		return f.updateErr
	}
	doc, err := template.Parse(body)
	if err != nil {
		return err
	}
	for i := range f.networks {
		if f.networks[i].ID == id {
			f.networks[i].Template = doc
			return nil
		}
	}
	return errors.NewNotFoundError("network", fmt.Sprint(id))
}

func (f *fakeClient) Chown(_ context.Context, id, uid, gid int) error {
	f.calls = append(f.calls, fmt.Sprintf("chown(%d,%d,%d)", id, uid, gid))
	if f.chownErr != nil {
		return f.chownErr
	}
	for i := range f.networks {
		if f.networks[i].ID == id {
			if uid != -1 {
				f.networks[i].OwnerID = uid
			}
			if gid != -1 {
				f.networks[i].GroupID = gid
			}
			return nil
		}
	}
	return errors.NewNotFoundError("network", fmt.Sprint(id))
}

func (f *fakeClient) Delete(_ context.Context, id int) error {
	f.calls = append(f.calls, fmt.Sprintf("delete(%d)", id))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.networks {
		if f.networks[i].ID == id {
			f.networks = append(f.networks[:i], f.networks[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("network", fmt.Sprint(id))
}

func existingNetwork() vnet.Network {
	return vnet.Network{
		ID:        7,
		Name:      "web",
		Template:  template.MustParse("VN_MAD = \"bridge\"\nBRIDGE = \"br0\""),
		OwnerID:   3,
		OwnerName: "alice",
		GroupID:   1,
		GroupName: "users",
	}
}

func newReconciler(t *testing.T, client reconcile.Client, opts ...reconcile.Option) *reconcile.Reconciler {
	t.Helper()
	opts = append(opts, reconcile.WithLogger(logging.NewNopLogger()))
	r, err := reconcile.New(client, opts...)
	require.NoError(t, err)
	return r
}

func TestNewRequiresClient(t *testing.T) {
	_, err := reconcile.New(nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestReconcileValidatesSpec(t *testing.T) {
	r := newReconciler(t, newFakeClient())
	_, err := r.Reconcile(context.Background(), vnet.Spec{State: vnet.StatePresent})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestQuery(t *testing.T) {
	t.Run("found by name", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		network, err := r.Query(context.Background(), vnet.Spec{Name: "web"})
		require.NoError(t, err)
		assert.Equal(t, 7, network.ID)
		assert.Equal(t, []string{"list"}, client.calls)
	})

	t.Run("found by id", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		network, err := r.Query(context.Background(), vnet.Spec{ID: intPtr(7)})
		require.NoError(t, err)
		assert.Equal(t, "web", network.Name)
	})

	t.Run("not found", func(t *testing.T) {
		r := newReconciler(t, newFakeClient())
		_, err := r.Query(context.Background(), vnet.Spec{Name: "missing"})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("reconcile does not mark query changed", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		result, err := r.Reconcile(context.Background(), vnet.Spec{Name: "web", State: vnet.StateQuery})
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, reconcile.ActionUnchanged, result.Action)
		assert.NotNil(t, result.Network)
	})
}

func TestAbsent(t *testing.T) {
	t.Run("already gone", func(t *testing.T) {
		client := newFakeClient()
		r := newReconciler(t, client)

		result, err := r.Reconcile(context.Background(), vnet.Spec{Name: "web", State: vnet.StateAbsent})
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, reconcile.ActionAbsent, result.Action)
		assert.Equal(t, []string{"list"}, client.calls)
	})

	t.Run("deletes existing", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		result, err := r.Reconcile(context.Background(), vnet.Spec{Name: "web", State: vnet.StateAbsent})
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionDeleted, result.Action)
		assert.Contains(t, client.calls, "delete(7)")
		assert.Empty(t, client.networks)
	})

	t.Run("dry run issues no delete", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client, reconcile.WithDryRun(true))

		result, err := r.Reconcile(context.Background(), vnet.Spec{Name: "web", State: vnet.StateAbsent})
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.True(t, result.Metadata.DryRun)
		assert.Equal(t, []string{"list"}, client.calls)
		assert.Len(t, client.networks, 1)
	})

	t.Run("delete error propagates", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		client.deleteErr = errors.New("boom")
		r := newReconciler(t, client)

		_, err := r.Reconcile(context.Background(), vnet.Spec{Name: "web", State: vnet.StateAbsent})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete network 7")
	})
}

func TestCreate(t *testing.T) {
	spec := vnet.Spec{
		Name:     "db",
		Template: "VN_MAD = \"bridge\"\nBRIDGE = \"br1\"",
		State:    vnet.StatePresent,
	}

	t.Run("allocates and reports created", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		result, err := r.Reconcile(context.Background(), spec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionCreated, result.Action)
		require.NotNil(t, result.Network)
		assert.Equal(t, "db", result.Network.Name)
		assert.Equal(t, "br1", result.Network.Template.GetString("BRIDGE"))
		assert.Contains(t, client.calls, "allocate")
		// every desired attribute shows up as an addition
		assert.Equal(t, 2, result.Changeset.Len())
	})

	t.Run("missing by id is an error", func(t *testing.T) {
		client := newFakeClient()
		r := newReconciler(t, client)

		byID := vnet.Spec{ID: intPtr(99), Template: spec.Template, State: vnet.StatePresent}
		_, err := r.Reconcile(context.Background(), byID)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, []string{"list"}, client.calls)
	})

	t.Run("applies requested ownership", func(t *testing.T) {
		client := newFakeClient()
		r := newReconciler(t, client)

		owned := spec
		owned.Owner = intPtr(5)
		owned.Group = intPtr(2)
		result, err := r.Reconcile(context.Background(), owned)
		require.NoError(t, err)
		assert.Contains(t, client.calls, "chown(1,5,2)")
		assert.Equal(t, 5, result.Network.OwnerID)
		assert.Equal(t, 2, result.Network.GroupID)
	})

	t.Run("created network handed to another user", func(t *testing.T) {
		// The allocating user stops seeing the network after the
		// transfer, so the result comes from the pre-chown listing.
		client := newFakeClient()
		client.sessionUID = intPtr(0)
		r := newReconciler(t, client)

		owned := spec
		owned.Owner = intPtr(5)
		result, err := r.Reconcile(context.Background(), owned)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionCreated, result.Action)
		assert.Contains(t, client.calls, "chown(1,5,-1)")
		require.NotNil(t, result.Network)
		assert.Equal(t, 5, result.Network.OwnerID)
		assert.Empty(t, result.Network.OwnerName)
	})

	t.Run("dry run issues no calls beyond the listing", func(t *testing.T) {
		client := newFakeClient()
		r := newReconciler(t, client, reconcile.WithDryRun(true))

		result, err := r.Reconcile(context.Background(), spec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionCreated, result.Action)
		assert.Nil(t, result.Network)
		assert.Equal(t, []string{"list"}, client.calls)
	})

	t.Run("allocate error propagates", func(t *testing.T) {
		client := newFakeClient()
		client.allocateErr = errors.New("quota exceeded")
		r := newReconciler(t, client)

		_, err := r.Reconcile(context.Background(), spec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create network db")
	})
}

func TestUpdate(t *testing.T) {
	unchangedSpec := vnet.Spec{
		Name:     "web",
		Template: "BRIDGE = \"br0\"\nVN_MAD = \"bridge\"",
		State:    vnet.StatePresent,
	}
	changedSpec := vnet.Spec{
		Name:     "web",
		Template: "VN_MAD = \"bridge\"\nBRIDGE = \"br2\"\nMTU = \"9000\"",
		State:    vnet.StatePresent,
	}

	t.Run("matching template is unchanged with no mutation", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		result, err := r.Reconcile(context.Background(), unchangedSpec)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, reconcile.ActionUnchanged, result.Action)
		assert.Equal(t, []string{"list"}, client.calls)
	})

	t.Run("template drift triggers replace", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		result, err := r.Reconcile(context.Background(), changedSpec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionConfigured, result.Action)
		assert.Contains(t, client.calls, "update(7)")
		assert.Equal(t, "br2", result.Network.Template.GetString("BRIDGE"))

		// BRIDGE updated, MTU added
		paths := map[string]reconcile.ChangeType{}
		for _, c := range result.Changeset.Changes {
			paths[c.Path] = c.Type
		}
		assert.Equal(t, reconcile.ChangeTypeUpdate, paths["BRIDGE"])
		assert.Equal(t, reconcile.ChangeTypeAdd, paths["MTU"])
	})

	t.Run("ownership transfer without template drift", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		spec := unchangedSpec
		spec.Owner = intPtr(9)
		result, err := r.Reconcile(context.Background(), spec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionConfigured, result.Action)
		assert.Contains(t, client.calls, "chown(7,9,-1)")
		assert.NotContains(t, client.calls, "update(7)")
		assert.Equal(t, 9, result.Network.OwnerID)

		require.Equal(t, 1, result.Changeset.Len())
		assert.Equal(t, "owner", result.Changeset.Changes[0].Path)
		assert.Equal(t, "3", result.Changeset.Changes[0].OldValue)
		assert.Equal(t, "9", result.Changeset.Changes[0].NewValue)
	})

	t.Run("ownership transferred away from the session user", func(t *testing.T) {
		// Once chowned to uid 9 the network no longer appears in the
		// session user's pool listing, so the result must be composed
		// from the state observed before the transfer.
		client := newFakeClient(existingNetwork())
		client.sessionUID = intPtr(3)
		r := newReconciler(t, client)

		spec := unchangedSpec
		spec.Owner = intPtr(9)
		result, err := r.Reconcile(context.Background(), spec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionConfigured, result.Action)
		assert.Contains(t, client.calls, "chown(7,9,-1)")
		require.NotNil(t, result.Network)
		assert.Equal(t, 9, result.Network.OwnerID)
		assert.Empty(t, result.Network.OwnerName)
		assert.Equal(t, "web", result.Network.Name)
	})

	t.Run("template drift with ownership transferred away", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		client.sessionUID = intPtr(3)
		r := newReconciler(t, client)

		spec := changedSpec
		spec.Owner = intPtr(9)
		result, err := r.Reconcile(context.Background(), spec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Contains(t, client.calls, "update(7)")
		assert.Contains(t, client.calls, "chown(7,9,-1)")
		require.NotNil(t, result.Network)
		assert.Equal(t, "br2", result.Network.Template.GetString("BRIDGE"))
		assert.Equal(t, 9, result.Network.OwnerID)
	})

	t.Run("matching ownership needs no chown", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client)

		spec := unchangedSpec
		spec.Owner = intPtr(3)
		spec.Group = intPtr(1)
		result, err := r.Reconcile(context.Background(), spec)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, []string{"list"}, client.calls)
	})

	t.Run("dry run reports drift without mutating", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client, reconcile.WithDryRun(true))

		result, err := r.Reconcile(context.Background(), changedSpec)
		require.NoError(t, err)
		assert.True(t, result.Changed)
		assert.Equal(t, reconcile.ActionConfigured, result.Action)
		assert.Equal(t, []string{"list"}, client.calls)
		// network still reports the pre-update state
		assert.Equal(t, "br0", result.Network.Template.GetString("BRIDGE"))
	})

	t.Run("dry run is accurate for identical template", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		r := newReconciler(t, client, reconcile.WithDryRun(true))

		result, err := r.Reconcile(context.Background(), unchangedSpec)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Equal(t, reconcile.ActionUnchanged, result.Action)
	})

	t.Run("update error propagates", func(t *testing.T) {
		client := newFakeClient(existingNetwork())
		client.updateErr = errors.New("locked")
		r := newReconciler(t, client)

		_, err := r.Reconcile(context.Background(), changedSpec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update network 7")
	})
}

func TestListErrorPropagates(t *testing.T) {
	client := newFakeClient()
	client.listErr = errors.New("connection refused")
	r := newReconciler(t, client)

	_, err := r.Reconcile(context.Background(), vnet.Spec{Name: "web", State: vnet.StateAbsent})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list network")
}

func TestReconcileIsIdempotent(t *testing.T) {
	client := newFakeClient()
	r := newReconciler(t, client)

	spec := vnet.Spec{
		Name:     "idem",
		Template: "VN_MAD = \"bridge\"",
		State:    vnet.StatePresent,
	}

	first, err := r.Reconcile(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, reconcile.ActionCreated, first.Action)

	second, err := r.Reconcile(context.Background(), spec)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, reconcile.ActionUnchanged, second.Action)
}
