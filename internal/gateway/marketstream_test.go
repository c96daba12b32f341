package gateway

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamTestGateway() *Gateway {
	return New(Config{Client: &fakeClient{}, Quote: "USDT", EnableWebsocket: true}, zerolog.Nop())
}

func TestHandleStreamMessage_TickerUpdatesCache(t *testing.T) {
	g := newStreamTestGateway()

	g.handleStreamMessage([]byte(`{"e":"24hrTicker","s":"BTCUSDT","c":"65000.50"}`))

	ticker, ok := g.freshTicker("BTC/USDT:USDT")
	require.True(t, ok)
	assert.Equal(t, 65000.50, ticker.Price)
}

func TestHandleStreamMessage_IgnoresZeroPriceTicker(t *testing.T) {
	g := newStreamTestGateway()

	g.handleStreamMessage([]byte(`{"e":"24hrTicker","s":"BTCUSDT","c":"0"}`))

	_, ok := g.freshTicker("BTC/USDT:USDT")
	assert.False(t, ok)
}

func TestHandleStreamMessage_ClosedKlineMergesIntoCandleCache(t *testing.T) {
	g := newStreamTestGateway()

	g.handleStreamMessage([]byte(`{"e":"kline","s":"ETHUSDT","k":{"t":60000,"o":"3000","h":"3010","l":"2990","c":"3005","v":"12.5","x":true}}`))

	g.mu.Lock()
	cached := g.candles["ETH/USDT:USDT"]
	g.mu.Unlock()

	require.Len(t, cached.candles, 1)
	assert.Equal(t, 3005.0, cached.candles[0].Close)
}

func TestHandleStreamMessage_UnclosedKlineIgnored(t *testing.T) {
	g := newStreamTestGateway()

	g.handleStreamMessage([]byte(`{"e":"kline","s":"ETHUSDT","k":{"t":60000,"o":"3000","h":"3010","l":"2990","c":"3005","v":"12.5","x":false}}`))

	g.mu.Lock()
	_, ok := g.candles["ETH/USDT:USDT"]
	g.mu.Unlock()
	assert.False(t, ok)
}

func TestHandleStreamMessage_UnknownEventIgnored(t *testing.T) {
	g := newStreamTestGateway()
	g.handleStreamMessage([]byte(`{"e":"somethingElse"}`))
	g.handleStreamMessage([]byte(`not json`))
}

func TestSubscribe_NoOpWhenStreamingDisabled(t *testing.T) {
	g := newTestGateway(&fakeClient{})
	g.Subscribe("BTC/USDT:USDT", []string{"1h"})
	assert.Nil(t, g.stream)
}

func TestSubscribe_TracksTopicsWithinCap(t *testing.T) {
	g := newStreamTestGateway()
	g.Subscribe("BTC/USDT:USDT", []string{"1h", "4h"})

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Len(t, g.stream.subscriptions, 3)
}
