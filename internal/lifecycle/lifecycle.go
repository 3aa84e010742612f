// Package lifecycle ends the life of the machine the collector runs on once a
// run is over.
package lifecycle

import (
	"context"
	"fmt"

	"gamestats/internal/components/telemetry"

	"cloud.google.com/go/compute/metadata"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
)

const report_terminate = "lifecycle.terminate"

// Terminator is invoked once at the very end of a run.
//
// note: fault injection point
type Terminator interface {
	Terminate(ctx context.Context) error
}

// Noop leaves the machine running.
type Noop struct {
	tel telemetry.API
}

func NewNoop(tel telemetry.API) Noop {
	return Noop{tel: tel}
}

func (n Noop) Terminate(ctx context.Context) error {
	n.tel.ReportInfo("shutdown disabled, leaving the machine running")
	return nil
}

// Metadata is the subset of the GCE metadata server the stopper relies on,
// satisfied by *metadata.Client.
type Metadata interface {
	ProjectIDWithContext(ctx context.Context) (string, error)
	ZoneWithContext(ctx context.Context) (string, error)
	InstanceNameWithContext(ctx context.Context) (string, error)
}

// GCE stops the compute engine instance it is running on.
type GCE struct {
	metadata Metadata
	compute  *compute.Service
	tel      telemetry.API
}

// NewGCE uses the application default credentials unless options say
// otherwise, the metadata server honours GCE_METADATA_HOST.
func NewGCE(ctx context.Context, tel telemetry.API, opts ...option.ClientOption) (GCE, error) {
	computeClient, err := compute.NewService(ctx, opts...)
	if err != nil {
		return GCE{}, fmt.Errorf("failed to create compute client: %w", err)
	}
	return GCE{
		metadata: metadata.NewWithOptions(&metadata.Options{}),
		compute:  computeClient,
		tel:      tel,
	}, nil
}

func (g GCE) Terminate(ctx context.Context) error {
	projectID, err := g.metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return g.fail(fmt.Errorf("cannot determine project id: %w", err))
	}
	zone, err := g.metadata.ZoneWithContext(ctx)
	if err != nil {
		return g.fail(fmt.Errorf("cannot determine GCE zone: %w", err))
	}
	name, err := g.metadata.InstanceNameWithContext(ctx)
	if err != nil {
		return g.fail(fmt.Errorf("cannot determine instance name: %w", err))
	}

	g.tel.ReportInfo("stopping instance", projectID, zone, name)
	op, err := g.compute.Instances.Stop(projectID, zone, name).Context(ctx).Do()
	if err != nil {
		return g.fail(fmt.Errorf("stop instance %s: %w", name, err))
	}
	g.tel.ReportDebug("stop requested", op.Name, op.Status)
	return nil
}

func (g GCE) fail(err error) error {
	g.tel.ReportBroken(report_terminate, err)
	return err
}
