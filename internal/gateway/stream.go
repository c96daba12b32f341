package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// maxSubscriptions caps aggregate subscriptions at a safe bound below the
// exchange's hard 400-topic limit.
const maxSubscriptions = 380

// streamState tracks the websocket session's connection and subscription
// set, all guarded by the Gateway's single mutex.
type streamState struct {
	conn          *websocket.Conn
	connected     bool
	subscriptions map[string]struct{} // wire-form topic strings
}

func newStreamState() *streamState {
	return &streamState{subscriptions: make(map[string]struct{})}
}

// StreamDialer opens the underlying websocket connection; production code
// points this at the exchange's market-stream URL, tests supply a fake.
type StreamDialer func(ctx context.Context) (*websocket.Conn, error)

// Start begins the streaming session: dial, subscribe to the initial
// topic set, then run a reconnect loop in the background until ctx is
// canceled.
func (g *Gateway) Start(ctx context.Context, dial StreamDialer, onMessage func([]byte)) error {
	if g.stream == nil {
		return fmt.Errorf("gateway: streaming not enabled")
	}
	go g.runStream(ctx, dial, onMessage)
	return nil
}

func (g *Gateway) runStream(ctx context.Context, dial StreamDialer, onMessage func([]byte)) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := dial(ctx)
		if err != nil {
			g.log.Warn().Err(err).Dur("retry_in", backoff).Msg("stream dial failed, retrying")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		g.mu.Lock()
		g.stream.conn = conn
		g.stream.connected = true
		topics := topicSlice(g.stream.subscriptions)
		g.mu.Unlock()

		if err := g.sendSubscribe(topics); err != nil {
			g.log.Warn().Err(err).Msg("resubscribe after reconnect failed")
		}

		g.readLoop(ctx, conn, onMessage)

		g.mu.Lock()
		g.stream.connected = false
		g.mu.Unlock()
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, onMessage func([]byte)) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		default:
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			g.log.Warn().Err(err).Msg("stream read error, reconnecting")
			return
		}
		onMessage(msg)
	}
}

// Close shuts down the active stream connection, if any. The background
// reconnect loop exits on its own once the caller's context is canceled;
// Close just ensures the socket itself doesn't linger past that point.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stream == nil || g.stream.conn == nil {
		return nil
	}
	err := g.stream.conn.Close()
	g.stream.connected = false
	return err
}

// Subscribe adds ticker and candle topics for a symbol, in wire form,
// warning and skipping once the aggregate subscription count would
// exceed maxSubscriptions.
func (g *Gateway) Subscribe(symbol string, timeframes []string) {
	if g.stream == nil {
		return
	}
	wire := ToWireSymbol(symbol)

	g.mu.Lock()
	topics := []string{tickerTopic(wire)}
	for _, tf := range timeframes {
		topics = append(topics, candleTopic(wire, tf))
	}

	var toAdd []string
	for _, t := range topics {
		if _, exists := g.stream.subscriptions[t]; exists {
			continue
		}
		if len(g.stream.subscriptions) >= maxSubscriptions {
			g.log.Warn().Str("topic", t).Msg("subscription cap reached, skipping")
			continue
		}
		g.stream.subscriptions[t] = struct{}{}
		toAdd = append(toAdd, t)
	}
	connected := g.stream.connected
	g.mu.Unlock()

	if connected && len(toAdd) > 0 {
		if err := g.sendSubscribe(toAdd); err != nil {
			g.log.Warn().Err(err).Msg("subscribe send failed")
		}
	}
}

func (g *Gateway) sendSubscribe(topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	g.mu.Lock()
	conn := g.stream.conn
	connected := g.stream.connected
	g.mu.Unlock()

	if !connected || conn == nil {
		return fmt.Errorf("gateway: send attempted while disconnected")
	}

	req := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{Method: "SUBSCRIBE", Params: topics, ID: time.Now().UnixNano()}

	return conn.WriteJSON(req)
}

func tickerTopic(wireSymbol string) string {
	return fmt.Sprintf("%s@ticker", wireSymbol)
}

func candleTopic(wireSymbol, timeframe string) string {
	return fmt.Sprintf("%s@kline_%s", wireSymbol, timeframe)
}

func topicSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}
