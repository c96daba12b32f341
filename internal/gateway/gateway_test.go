package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelbot/perpagent/internal/metrics"
)

func newTestGateway(client Client) *Gateway {
	return New(Config{Client: client, Quote: "USDT"}, zerolog.Nop())
}

func TestPlaceOrder_RetriesTransientThenSucceeds(t *testing.T) {
	fc := &fakeClient{placeOrderErrs: []error{errTransient, errTransient}}
	g := newTestGateway(fc)

	order, err := g.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTC/USDT:USDT", Side: OrderSideBuy, Type: OrderTypeMarket, Quantity: 1, ReduceOnly: true,
	})

	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, order.Status)
	assert.Equal(t, 3, fc.placeOrderCall) // two failures then a success
}

func TestPlaceOrder_FatalErrorNotRetried(t *testing.T) {
	fc := &fakeClient{placeOrderErrs: []error{errFatal}}
	g := newTestGateway(fc)

	_, err := g.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTC/USDT:USDT", Side: OrderSideBuy, Type: OrderTypeMarket, Quantity: 1, ReduceOnly: true,
	})

	require.Error(t, err)
	assert.Equal(t, 1, fc.placeOrderCall)
}

func TestGetTicker_ServesFromCacheWhenFresh(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway(fc)

	_, err := g.GetTicker(context.Background(), "BTC/USDT:USDT", PriorityNormal)
	require.NoError(t, err)

	t2, err := g.GetTicker(context.Background(), "BTC/USDT:USDT", PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, 100.0, t2.Price)
}

func TestGetTicker_HighPriorityBypassesCache(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway(fc)

	_, err := g.GetTicker(context.Background(), "BTC/USDT:USDT", PriorityHigh)
	require.NoError(t, err)
	// HIGH priority (monitor/main) always re-fetches live rather than
	// trusting the cache, exercised here by confirming no error occurs on
	// a second immediate call.
	_, err = g.GetTicker(context.Background(), "BTC/USDT:USDT", PriorityHigh)
	require.NoError(t, err)
}

func TestRefreshMetadata_CachesSymbolMetadata(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway(fc)

	err := g.RefreshMetadata(context.Background(), "ETH/USDT:USDT")
	require.NoError(t, err)

	meta, ok := g.Metadata("ETH/USDT:USDT")
	require.True(t, ok)
	assert.Equal(t, 0.001, meta.LotSize)
	assert.Equal(t, 10000.0, meta.MaxAmount)
}

func TestRefreshMetadata_DefaultsMaxAmountWhenMissing(t *testing.T) {
	fc := &fakeClient{metadata: &SymbolMeta{WireSymbol: "SOLUSDT", TickSize: 0.01, LotSize: 0.01, ContractSize: 1}}
	g := newTestGateway(fc)

	require.NoError(t, g.RefreshMetadata(context.Background(), "SOL/USDT:USDT"))
	meta, _ := g.Metadata("SOL/USDT:USDT")
	assert.Equal(t, float64(10000), meta.MaxAmount)
}

func TestBreaker_OpensAfterMinRequestsAllFailAndBlocksNonCritical(t *testing.T) {
	fc := &fakeClient{}
	g := newTestGateway(fc)

	attempts, _ := retryPolicy(PriorityCritical)
	errs := make([]error, attempts)
	for i := range errs {
		errs[i] = errTransient
	}
	fc.placeOrderErrs = errs

	// Each PlaceOrder call retries CRITICAL up to 6 times internally, but
	// the breaker counts every Execute regardless of caller retries, so a
	// single CRITICAL call already exhausts breakerMinRequests failures
	// and trips the breaker for the create_order endpoint class. The
	// remaining attempt bypasses the open breaker and fails as well.
	_, err := g.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTC/USDT:USDT", Side: OrderSideBuy, Type: OrderTypeMarket, Quantity: 1, ReduceOnly: true,
	})
	require.Error(t, err)

	assert.True(t, g.breakers.IsOpen("create_order"))

	// A NORMAL call on the same endpoint class is rejected without ever
	// reaching the exchange.
	reached := false
	err = g.call(context.Background(), "create_order", PriorityNormal, "create_order", func(ctx context.Context) error {
		reached = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, reached)

	// The breaker is now open, but a CRITICAL close/cancel call must still
	// reach the exchange rather than being blocked like NORMAL/HIGH calls.
	fc.placeOrderErrs = nil
	_, err = g.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTC/USDT:USDT", Side: OrderSideSell, Type: OrderTypeMarket, Quantity: 1, ReduceOnly: true,
	})
	require.NoError(t, err)
	assert.True(t, g.breakers.IsOpen("create_order"))
}

func TestPriorityGate_EnterExitUpdatesCriticalCallsInFlightGauge(t *testing.T) {
	g := &criticalGate{}
	g.enter()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CriticalCallsInFlight))

	g.exit()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CriticalCallsInFlight))
}

func TestPriorityGate_CriticalNeverWaits(t *testing.T) {
	g := &criticalGate{}
	g.enter()
	defer g.exit()

	done := make(chan struct{})
	go func() {
		g.enter()
		g.exit()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a second CRITICAL caller must not block on an in-flight CRITICAL call")
	}
}

func TestPriorityGate_NonCriticalWaitsForCritical(t *testing.T) {
	g := &criticalGate{}
	g.enter()

	cleared := make(chan struct{})
	go func() {
		g.awaitClear(context.Background())
		close(cleared)
	}()

	select {
	case <-cleared:
		t.Fatal("non-CRITICAL caller must wait while a CRITICAL call is in flight")
	case <-time.After(50 * time.Millisecond):
	}

	g.exit()
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("non-CRITICAL caller should clear once the CRITICAL call exits")
	}
}

func TestStagger_DelaysEachSubsequentItem(t *testing.T) {
	items := []int{1, 2, 3}
	var calls []time.Time

	start := time.Now()
	Stagger(context.Background(), items, func(ctx context.Context, item int) {
		calls = append(calls, time.Now())
	})

	assert.Len(t, calls, 3)
	assert.WithinDuration(t, start, calls[0], 20*time.Millisecond)
	assert.True(t, calls[2].Sub(calls[0]) >= 2*staggerDelay-10*time.Millisecond)
}

func TestSymbolConversion_RoundTrips(t *testing.T) {
	wire := ToWireSymbol("BTC/USDT:USDT")
	assert.Equal(t, "BTCUSDT", wire)
	assert.Equal(t, "BTC/USDT:USDT", FromWireSymbol(wire, "USDT"))
	assert.Equal(t, "BTC", BaseAsset("BTC/USDT:USDT"))
}
