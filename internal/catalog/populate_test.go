package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/gatt/gatttest"
)

type linkServices struct{ link gatt.Link }

func (s linkServices) Services(ctx context.Context) ([]gatt.Service, error) {
	return s.link.Services(ctx)
}

func TestPopulateDevicesRetriesUntilFound(t *testing.T) {
	nus := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	tr := gatttest.NewTransport(nus)
	tr.ScriptDiscovery(nil, nil, []gatt.Device{{Address: "AA"}, nus.Device})

	var reasons []error
	p := &Populator{
		Devices:  tr,
		Interval: time.Millisecond,
		OnRetry:  func(_ Stage, _ int, err error) { reasons = append(reasons, err) },
	}

	cat, err := p.Populate(context.Background(), StageDevice, Request{})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Discovers())
	assert.Equal(t, []gatt.Device{nus.Device}, cat.Devices)
	assert.Equal(t, 1, cat.Hidden)
	require.Len(t, reasons, 2)
	assert.ErrorIs(t, reasons[0], gatt.ErrDiscoveryEmpty)

	cat, err = p.Populate(context.Background(), StageDevice, Request{ShowUnnamed: true})
	require.NoError(t, err)
	assert.Len(t, cat.Devices, 2)
}

func TestPopulateDevicesRetriesOnError(t *testing.T) {
	nus := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	tr := gatttest.NewTransport(nus)
	boom := errors.New("org.bluez.Error.InProgress")
	tr.FailDiscover(boom)

	var reasons []error
	p := &Populator{Devices: tr, Interval: time.Millisecond, OnRetry: func(_ Stage, _ int, err error) { reasons = append(reasons, err) }}

	cat, err := p.Populate(context.Background(), StageDevice, Request{})
	require.NoError(t, err)
	assert.Len(t, cat.Devices, 1)
	assert.Equal(t, []error{boom}, reasons)
}

func TestPopulateCancelled(t *testing.T) {
	tr := gatttest.NewTransport()
	p := &Populator{Devices: tr, Interval: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Populate(ctx, StageDevice, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, tr.Discovers(), 1)
}

func TestPopulateServicesRetriesOnEmpty(t *testing.T) {
	nus := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	tr := gatttest.NewTransport(nus)
	link, err := tr.Connect(context.Background(), nus.Device)
	require.NoError(t, err)
	nus.EmptyServices(2)

	p := &Populator{Devices: tr, Interval: time.Millisecond}
	cat, err := p.Populate(context.Background(), StageServices, Request{Services: linkServices{link}})
	require.NoError(t, err)
	assert.Equal(t, 3, nus.ServicesCalls())
	assert.Len(t, cat.Services, 1)

	_, err = p.Populate(context.Background(), StageServices, Request{})
	assert.Error(t, err)
}

func TestPopulateRxTxDoesNotTouchTransport(t *testing.T) {
	tr := gatttest.NewTransport()
	p := &Populator{Devices: tr}
	selected := []gatt.Service{mixedService()}

	rx, err := p.Populate(context.Background(), StageRx, Request{Selected: selected})
	require.NoError(t, err)
	tx, err := p.Populate(context.Background(), StageTx, Request{Selected: selected})
	require.NoError(t, err)
	disjoint, err := p.Populate(context.Background(), StageTx, Request{Selected: selected, Exclude: rx.Chars[:1]})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, ids(rx.Chars))
	assert.Equal(t, []string{"a", "d"}, ids(tx.Chars))
	assert.Equal(t, []string{"d"}, ids(disjoint.Chars))
	assert.Equal(t, 0, tr.Discovers())

	empty, err := p.Populate(context.Background(), StageRx, Request{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len(), "an empty Rx catalog is returned as-is")
}
