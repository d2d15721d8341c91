package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func TestCartService_EvictRehydratesFromStore(t *testing.T) {
	ctx := context.Background()
	kv := repos.NewMemoryKV()
	svc := services.NewCartService(kv, nil)

	c, err := svc.Open(ctx, domain.GeneralCart, "s1")
	require.NoError(t, err)
	require.NoError(t, c.AddItem(ctx, cand(1, "10.00")))
	_, err = svc.Open(ctx, domain.GeneralCart, "s2")
	require.NoError(t, err)
	require.Equal(t, 2, svc.Cached())

	assert.Equal(t, 0, svc.Evict(time.Now().Add(-time.Hour)))
	assert.Equal(t, 2, svc.Evict(time.Now().Add(time.Second)))
	assert.Equal(t, 0, svc.Cached())

	again, err := svc.Open(ctx, domain.GeneralCart, "s1")
	require.NoError(t, err)
	assert.NotSame(t, c, again)
	require.Len(t, again.Items(), 1)
	assert.Equal(t, int64(1), again.Items()[0].ID)
}

func TestCatalogService_EvictClosesBrowsers(t *testing.T) {
	svc := services.NewCatalogService(newFakeCatalog(1), nil, nil, time.Hour)
	defer svc.Close()

	b := svc.Browser("s1")
	b.SetSearchTerm("olla") // pending for an hour unless closed
	assert.Equal(t, 1, svc.Evict(time.Now().Add(time.Second)))
	assert.NotSame(t, b, svc.Browser("s1"))
}

func TestCheckoutService_EvictSkipsRunningSubmission(t *testing.T) {
	f := newFlow(t)
	fill(t, f.cart)
	gate := make(chan struct{})
	f.orders.gate = gate

	svc := services.NewCheckoutService(f.orders, fakeReceipts{}, f.archive, nil, nil)
	sub := svc.Submitter(f.cart)
	done := make(chan error, 1)
	go func() {
		_, err := sub.Submit(context.Background(), services.Customer{Name: "Ana", ID: "1"})
		done <- err
	}()
	require.Eventually(t, func() bool { return sub.State().State == domain.CheckoutSubmitting }, time.Second, time.Millisecond)

	assert.Equal(t, 0, svc.Evict(time.Now().Add(time.Second)))
	assert.Same(t, sub, svc.Submitter(f.cart))

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, svc.Evict(time.Now().Add(time.Second)))
	assert.NotSame(t, sub, svc.Submitter(f.cart))
}

func TestSweepIdle_EvictsUntilCancelled(t *testing.T) {
	svc := services.NewCartService(repos.NewMemoryKV(), nil)
	_, err := svc.Open(context.Background(), domain.ReservationCart, "s1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		services.SweepIdle(ctx, 5*time.Millisecond, time.Millisecond, svc)
		close(done)
	}()

	require.Eventually(t, func() bool { return svc.Cached() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
