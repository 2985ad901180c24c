package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/logging"
)

// DefaultInterval is the discovery retry cadence
const DefaultInterval = 200 * time.Millisecond

// DeviceSource discovers devices. gatt.Transport satisfies it.
type DeviceSource interface {
	Discover(ctx context.Context) ([]gatt.Device, error)
}

// ServiceSource lists the services of the selected device, connecting first
// if needed. The link manager satisfies it.
type ServiceSource interface {
	Services(ctx context.Context) ([]gatt.Service, error)
}

// Request carries the selections a stage's catalog depends on
type Request struct {
	// ShowUnnamed disables the named-device filter at StageDevice
	ShowUnnamed bool

	// Services lists the chosen device's services at StageServices
	Services ServiceSource

	// Selected are the chosen services, used at StageRx and StageTx
	Selected []gatt.Service

	// Exclude removes characteristics from the Tx candidates (disjoint policy)
	Exclude []gatt.Characteristic
}

// Populator builds catalogs, retrying discovery until something is found
type Populator struct {
	Devices  DeviceSource
	Interval time.Duration

	// OnRetry, if set, is called before each wait with the attempt number
	// and the reason (gatt.ErrDiscoveryEmpty or a transport error).
	OnRetry func(stage Stage, attempt int, err error)
}

// Populate returns the catalog for stage. Device and service discovery
// block until at least one candidate is found, retrying every Interval;
// context cancellation aborts with ctx.Err(). Rx and Tx candidates are
// derived from req.Selected without touching the transport and may be empty.
func (p *Populator) Populate(ctx context.Context, stage Stage, req Request) (Catalog, error) {
	switch stage {
	case StageDevice:
		devices, err := retry(ctx, p, stage, p.Devices.Discover)
		if err != nil {
			return Catalog{}, err
		}
		shown, hidden := FilterNamed(devices, req.ShowUnnamed)
		return Catalog{Stage: stage, Devices: shown, Hidden: hidden}, nil

	case StageServices:
		if req.Services == nil {
			return Catalog{}, errors.New("catalog: no service source")
		}
		services, err := retry(ctx, p, stage, req.Services.Services)
		if err != nil {
			return Catalog{}, err
		}
		return Catalog{Stage: stage, Services: services}, nil

	case StageRx, StageTx:
		rx, tx := Classify(req.Selected)
		if stage == StageRx {
			return Catalog{Stage: stage, Chars: rx}, nil
		}
		return Catalog{Stage: stage, Chars: Exclude(tx, req.Exclude)}, nil

	default:
		return Catalog{}, errors.New("catalog: unknown stage " + stage.String())
	}
}

func retry[T any](ctx context.Context, p *Populator, stage Stage, fetch func(context.Context) ([]T, error)) ([]T, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	for attempt := 1; ; attempt++ {
		items, err := fetch(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err == nil {
			err = gatt.ErrDiscoveryEmpty
		}

		logging.Debug("Discovery retry",
			zap.Stringer("stage", stage),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if p.OnRetry != nil {
			p.OnRetry(stage, attempt, err)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
