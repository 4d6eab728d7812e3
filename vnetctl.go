// Package vnetctl manages OpenNebula virtual networks declaratively.
// Callers describe the desired state of a network and the Manager
// reconciles the frontend to match it, reporting what changed.
package vnetctl

import (
	"context"
	"fmt"
	"io"

	"github.com/nebulaops/vnetctl/internal/oneapi"
	"github.com/nebulaops/vnetctl/pkg/reconcile"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// Manager reconciles virtual network specifications against a frontend.
type Manager interface {
	// Apply ensures the network described by spec exists and matches it.
	Apply(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error)

	// Delete ensures the network described by spec is gone.
	Delete(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error)

	// Query reports the current state of the network without changing it.
	Query(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error)

	// Run dispatches on the spec's own desired state.
	Run(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error)

	// List returns the virtual networks visible to the session.
	List(ctx context.Context) ([]vnet.Network, error)

	// Close releases the frontend connection.
	Close() error
}

// manager is the internal implementation of the Manager interface
type manager struct {
	client     reconcile.Client
	reconciler *reconcile.Reconciler
	closer     io.Closer
}

// New creates a Manager with the given options. Without WithClient it
// connects to the frontend named by the endpoint and credential options,
// falling back to the ONE_XMLRPC and ONE_AUTH conventions.
func New(opts ...Option) (Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	client := cfg.client
	var closer io.Closer
	if client == nil {
		credential, err := oneapi.ResolveCredential(cfg.credential)
		if err != nil {
			return nil, err
		}
		oneClient, err := oneapi.New(oneapi.Config{
			Endpoint:           cfg.endpoint,
			Credential:         credential,
			Timeout:            cfg.timeout,
			InsecureSkipVerify: cfg.insecure,
			Logger:             cfg.logger,
		})
		if err != nil {
			return nil, err
		}
		client = oneClient
		closer = oneClient
	}

	recOpts := []reconcile.Option{reconcile.WithDryRun(cfg.dryRun)}
	if cfg.logger != nil {
		recOpts = append(recOpts, reconcile.WithLogger(cfg.logger))
	}
	reconciler, err := reconcile.New(client, recOpts...)
	if err != nil {
		return nil, err
	}

	return &manager{client: client, reconciler: reconciler, closer: closer}, nil
}

func (m *manager) Apply(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error) {
	spec.State = vnet.StatePresent
	return m.reconciler.Reconcile(ctx, spec)
}

func (m *manager) Delete(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error) {
	spec.State = vnet.StateAbsent
	return m.reconciler.Reconcile(ctx, spec)
}

func (m *manager) Query(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error) {
	spec.State = vnet.StateQuery
	return m.reconciler.Reconcile(ctx, spec)
}

func (m *manager) Run(ctx context.Context, spec vnet.Spec) (*reconcile.Result, error) {
	if spec.State == "" {
		spec.State = vnet.StatePresent
	}
	return m.reconciler.Reconcile(ctx, spec)
}

func (m *manager) List(ctx context.Context) ([]vnet.Network, error) {
	return m.client.Networks(ctx)
}

func (m *manager) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}
