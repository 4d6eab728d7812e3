package vnetctl

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebulaops/vnetctl/pkg/constants"
	"github.com/nebulaops/vnetctl/pkg/reconcile"
	"github.com/nebulaops/vnetctl/pkg/template"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// stubClient is a minimal in-memory frontend for facade tests.
type stubClient struct {
	networks []vnet.Network
	nextID   int
	deleted  []int
}

func (s *stubClient) Networks(context.Context) ([]vnet.Network, error) {
	out := make([]vnet.Network, len(s.networks))
	copy(out, s.networks)
	return out, nil
}

func (s *stubClient) Allocate(_ context.Context, body string) (int, error) {
	doc, err := template.Parse(body)
	if err != nil {
		return 0, err
	}
	s.nextID++
	name := doc.GetString("NAME")
	rest := template.Document{}
	for _, p := range doc.Pairs {
		if p.Key != "NAME" {
			rest.Pairs = append(rest.Pairs, p)
		}
	}
	s.networks = append(s.networks, vnet.Network{ID: s.nextID, Name: name, Template: rest})
	return s.nextID, nil
}

func (s *stubClient) Update(_ context.Context, id int, body string) error {
	doc, err := template.Parse(body)
	if err != nil {
		return err
	}
	for i := range s.networks {
		if s.networks[i].ID == id {
			s.networks[i].Template = doc
			return nil
		}
	}
	return fmt.Errorf("no such network %d", id)
}

func (s *stubClient) Chown(_ context.Context, id, uid, gid int) error {
	for i := range s.networks {
		if s.networks[i].ID == id {
			if uid >= 0 {
				s.networks[i].OwnerID = uid
			}
			if gid >= 0 {
				s.networks[i].GroupID = gid
			}
			return nil
		}
	}
	return fmt.Errorf("no such network %d", id)
}

func (s *stubClient) Delete(_ context.Context, id int) error {
	for i := range s.networks {
		if s.networks[i].ID == id {
			s.networks = append(s.networks[:i], s.networks[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return fmt.Errorf("no such network %d", id)
}

func newTestManager(t *testing.T, stub *stubClient, opts ...Option) Manager {
	t.Helper()
	m, err := New(append([]Option{WithClient(stub)}, opts...)...)
	require.NoError(t, err)
	return m
}

func TestManager_ApplyCreates(t *testing.T) {
	stub := &stubClient{}
	m := newTestManager(t, stub)
	defer m.Close()

	result, err := m.Apply(context.Background(), vnet.Spec{
		Name:     "web",
		Template: "VN_MAD = \"bridge\"\nBRIDGE = \"br0\"\n",
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, reconcile.ActionCreated, result.Action)
	require.NotNil(t, result.Network)
	assert.Equal(t, "web", result.Network.Name)
	require.Len(t, stub.networks, 1)
}

func TestManager_ApplyIsIdempotent(t *testing.T) {
	stub := &stubClient{}
	m := newTestManager(t, stub)
	defer m.Close()

	spec := vnet.Spec{Name: "web", Template: "VN_MAD = \"bridge\"\n"}

	first, err := m.Apply(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := m.Apply(context.Background(), spec)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, reconcile.ActionUnchanged, second.Action)
}

func TestManager_Delete(t *testing.T) {
	stub := &stubClient{
		networks: []vnet.Network{{ID: 4, Name: "old"}},
		nextID:   4,
	}
	m := newTestManager(t, stub)
	defer m.Close()

	result, err := m.Delete(context.Background(), vnet.Spec{Name: "old"})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, []int{4}, stub.deleted)
}

func TestManager_Query(t *testing.T) {
	stub := &stubClient{
		networks: []vnet.Network{{ID: 9, Name: "dmz", OwnerName: "alice"}},
		nextID:   9,
	}
	m := newTestManager(t, stub)
	defer m.Close()

	id := 9
	result, err := m.Query(context.Background(), vnet.Spec{ID: &id})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	require.NotNil(t, result.Network)
	assert.Equal(t, "dmz", result.Network.Name)
}

func TestManager_RunDispatchesOnState(t *testing.T) {
	stub := &stubClient{
		networks: []vnet.Network{{ID: 2, Name: "gone-soon"}},
		nextID:   2,
	}
	m := newTestManager(t, stub)
	defer m.Close()

	result, err := m.Run(context.Background(), vnet.Spec{Name: "gone-soon", State: vnet.StateAbsent})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionDeleted, result.Action)

	// Empty state defaults to present.
	result, err = m.Run(context.Background(), vnet.Spec{Name: "fresh", Template: "MTU = \"1500\"\n"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, result.Action)
}

func TestManager_DryRun(t *testing.T) {
	stub := &stubClient{}
	m := newTestManager(t, stub, WithDryRun(true))
	defer m.Close()

	result, err := m.Apply(context.Background(), vnet.Spec{
		Name:     "web",
		Template: "VN_MAD = \"bridge\"\n",
	})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.Metadata.DryRun)
	assert.Empty(t, stub.networks)
}

func TestManager_List(t *testing.T) {
	stub := &stubClient{
		networks: []vnet.Network{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
		nextID:   2,
	}
	m := newTestManager(t, stub)
	defer m.Close()

	networks, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "a", networks[0].Name)
}

func TestNew_EndpointFromEnvironment(t *testing.T) {
	t.Setenv(constants.EnvAuth, "user:password")
	t.Setenv(constants.EnvEndpoint, "://not-a-url")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid XML-RPC endpoint")
}

func TestWithEndpoint_EmptyKeepsFallback(t *testing.T) {
	t.Setenv(constants.EnvEndpoint, "http://frontend.example:2633/RPC2")

	cfg := defaultConfig()
	require.NoError(t, WithEndpoint("")(cfg))
	assert.Equal(t, "http://frontend.example:2633/RPC2", cfg.endpoint)

	require.NoError(t, WithEndpoint("http://other:2633/RPC2")(cfg))
	assert.Equal(t, "http://other:2633/RPC2", cfg.endpoint)
}

func TestManager_ValidationError(t *testing.T) {
	m := newTestManager(t, &stubClient{})
	defer m.Close()

	_, err := m.Apply(context.Background(), vnet.Spec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id or name")
}
