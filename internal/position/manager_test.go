package position

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
)

func newTestManager(gw *fakeGateway) *Manager {
	return New(gw, Config{}, zerolog.Nop())
}

var testMeta = domain.SymbolMetadata{
	Symbol: "BTC/USDT:USDT", TickSize: 0.1, LotSize: 0.001,
	ContractSize: 1, MinAmount: 0.001, MaxAmount: 1000, MinNotional: 5,
}

func TestOpen_RejectsInvertedStopTarget(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 100000}}
	m := newTestManager(gw)

	_, err := m.Open(context.Background(), OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 110, TakeProfit: 90, Amount: 1, Leverage: 5, Meta: testMeta,
	})
	require.ErrorIs(t, err, domain.ErrStopTargetInverted)
	assert.Equal(t, 0, m.Count())
}

func TestOpen_RejectsInsufficientMargin(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 1}}
	m := newTestManager(gw)

	_, err := m.Open(context.Background(), OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 90, TakeProfit: 120, Amount: 1, Leverage: 5, Meta: testMeta,
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestOpen_StoresPositionOnSuccess(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 100000}}
	m := newTestManager(gw)

	p, err := m.Open(context.Background(), OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 90, TakeProfit: 120, Amount: 1, Leverage: 5, Meta: testMeta,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 120.0, p.InitialTakeProfit)
	assert.Len(t, gw.orders, 1)
	assert.False(t, gw.orders[0].ReduceOnly)
}

func TestOpen_DuplicateFingerprintWithinWindowSuppressesSecondSubmission(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 100000}}
	m := newTestManager(gw)
	req := OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 90, TakeProfit: 120, Amount: 1, Leverage: 5, Meta: testMeta,
	}

	_, err := m.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = m.Open(context.Background(), req)
	require.NoError(t, err, "a duplicate submission of the same order within the debounce window must not error")
	assert.Len(t, gw.orders, 1, "the exchange must see exactly one create_order call for the duplicate pair")
}

func TestOpen_DistinctFingerprintsAreNotDebounced(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 100000}}
	m := newTestManager(gw)

	_, err := m.Open(context.Background(), OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 90, TakeProfit: 120, Amount: 1, Leverage: 5, Meta: testMeta,
	})
	require.NoError(t, err)

	_, err = m.Open(context.Background(), OpenRequest{
		Symbol: "ETH/USDT:USDT", Side: domain.SideLong, EntryPrice: 3000,
		StopLoss: 2900, TakeProfit: 3200, Amount: 1, Leverage: 5,
		Meta: domain.SymbolMetadata{Symbol: "ETH/USDT:USDT", TickSize: 0.1, LotSize: 0.001, ContractSize: 1, MinAmount: 0.001, MaxAmount: 1000, MinNotional: 5},
	})
	require.NoError(t, err, "a different symbol must carry a different fingerprint and submit independently")
	assert.Len(t, gw.orders, 2)
}

func TestClose_NoPositionIsIdempotent(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestManager(gw)

	event, err := m.Close(context.Background(), "BTC/USDT:USDT", 100, domain.ExitStopLoss)
	require.NoError(t, err)
	assert.True(t, event.Closed)
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, gw.orders)
}

func TestClose_FullCloseRemovesPositionAndUsesReduceOnly(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 100000}}
	m := newTestManager(gw)

	_, err := m.Open(context.Background(), OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 90, TakeProfit: 120, Amount: 1, Leverage: 5, Meta: testMeta,
	})
	require.NoError(t, err)

	ev, err := m.Close(context.Background(), "BTC/USDT:USDT", 110, domain.ExitTakeProfit)
	require.NoError(t, err)
	assert.True(t, ev.Closed)
	assert.InDelta(t, 0.1*5, ev.RealizedROI, 1e-9)
	assert.Equal(t, 0, m.Count())
	assert.True(t, gw.orders[1].ReduceOnly)
	assert.Equal(t, gateway.OrderSideSell, gw.orders[1].Side)
}

func TestCloseFraction_PartialCloseKeepsPositionOpenWithReducedAmount(t *testing.T) {
	gw := &fakeGateway{balance: gateway.Balance{AvailableMargin: 100000}}
	m := newTestManager(gw)

	_, err := m.Open(context.Background(), OpenRequest{
		Symbol: "BTC/USDT:USDT", Side: domain.SideLong, EntryPrice: 100,
		StopLoss: 90, TakeProfit: 120, Amount: 1, Leverage: 5, Meta: testMeta,
	})
	require.NoError(t, err)

	p, _ := m.get("BTC/USDT:USDT")
	ev, err := m.closeFraction(context.Background(), p, 0.3, 110, domain.ExitPartial)
	require.NoError(t, err)
	assert.False(t, ev.Closed)
	assert.InDelta(t, 0.3, ev.ClosedAmount, 1e-9)
	assert.InDelta(t, 0.7, p.Amount, 1e-9)
	assert.Equal(t, 1, m.Count())
}

func TestArmKillSwitch_MarksArmed(t *testing.T) {
	m := newTestManager(&fakeGateway{})
	assert.False(t, m.killSwitchArmed())
	m.ArmKillSwitch("operator requested shutdown")
	assert.True(t, m.killSwitchArmed())
}
