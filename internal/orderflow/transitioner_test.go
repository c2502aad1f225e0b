package orderflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riwa-pos/internal/backend"
	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
)

type fakeUpdater struct {
	err   error
	calls []domain.Status
}

func (f *fakeUpdater) UpdateStatus(_ context.Context, _ string, s domain.Status) error {
	f.calls = append(f.calls, s)
	return f.err
}

type fakeOrders map[string]domain.Order

func (f fakeOrders) Get(id string) (domain.Order, bool) {
	o, ok := f[id]
	return o, ok
}

func (f fakeOrders) ApplyLocal(id string, s domain.Status) error {
	o, ok := f[id]
	if !ok {
		return errors.New("missing")
	}
	o.Status = s
	f[id] = o
	return nil
}

type stops struct{ n int }

func (s *stops) Stop() { s.n++ }

func setup(err error) (*Transitioner, *fakeUpdater, fakeOrders, *stops) {
	up := &fakeUpdater{err: err}
	orders := fakeOrders{"o1": {ID: "o1", Status: domain.StatusPending, Total: domain.MustMoney("2.625")}}
	st := &stops{}
	return New(up, orders, st, logger.NewWithWriter("board", io.Discard)), up, orders, st
}

func TestAdvance_AppliesAfterBackendSuccess(t *testing.T) {
	tr, up, orders, st := setup(nil)
	got, err := tr.Advance(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, got.Status)
	assert.Equal(t, domain.StatusAccepted, orders["o1"].Status)
	assert.Equal(t, []domain.Status{domain.StatusAccepted}, up.calls)
	assert.Equal(t, 1, st.n)
	assert.Equal(t, "2.625", got.Total.String())
}

func TestSetStatus_InvalidNeverCallsBackend(t *testing.T) {
	tr, up, orders, st := setup(nil)
	_, err := tr.SetStatus(context.Background(), "o1", domain.StatusReady)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, up.calls)
	assert.Equal(t, domain.StatusPending, orders["o1"].Status)
	assert.Zero(t, st.n)
}

func TestSetStatus_BackendFailureLeavesState(t *testing.T) {
	tr, _, orders, st := setup(fmt.Errorf("%w: timeout", backend.ErrNetwork))
	_, err := tr.Cancel(context.Background(), "o1")
	assert.True(t, backend.IsNetwork(err))
	assert.Equal(t, domain.StatusPending, orders["o1"].Status)
	assert.Zero(t, st.n)
}

func TestUnknownOrderAndTerminal(t *testing.T) {
	tr, _, orders, _ := setup(nil)
	_, err := tr.Advance(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	orders["o2"] = domain.Order{ID: "o2", Status: domain.StatusCompleted}
	_, err = tr.Advance(context.Background(), "o2")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
