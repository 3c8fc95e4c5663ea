package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xfade/lagbot/internal/engine"
)

// ReferenceStream keeps the latest reference price in memory from a
// websocket feed, so Latest never blocks on the network. Reconnects with a
// flat backoff on any read error.
type ReferenceStream struct {
	wsURL  string
	symbol string

	mu   sync.RWMutex
	tick *engine.PriceTick

	conn    *websocket.Conn
	running bool
	stopCh  chan struct{}
}

// NewReferenceStream creates a streaming reference source
func NewReferenceStream(wsURL, symbol string) *ReferenceStream {
	return &ReferenceStream{
		wsURL:  wsURL,
		symbol: symbol,
		stopCh: make(chan struct{}),
	}
}

// Start connects and begins streaming
func (s *ReferenceStream) Start() error {
	s.running = true
	go s.runWebSocket()
	log.Info().Str("url", s.wsURL).Str("symbol", s.symbol).Msg("📈 Reference stream started")
	return nil
}

// Stop closes the connection and ends the stream
func (s *ReferenceStream) Stop() {
	s.running = false
	close(s.stopCh)
	if s.conn != nil {
		s.conn.Close()
	}
}

// Latest returns the most recent streamed tick, or (nil, nil) before the
// first message arrives.
func (s *ReferenceStream) Latest(ctx context.Context) (*engine.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tick == nil {
		return nil, nil
	}
	t := *s.tick
	return &t, nil
}

func (s *ReferenceStream) runWebSocket() {
	for s.running {
		if err := s.connect(); err != nil {
			log.Error().Err(err).Msg("Reference stream connection failed")
			time.Sleep(5 * time.Second)
			continue
		}

		s.readMessages()

		if s.running {
			log.Warn().Msg("Reference stream disconnected, reconnecting...")
			time.Sleep(1 * time.Second)
		}
	}
}

func (s *ReferenceStream) connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	s.conn = conn

	// Subscribe to the mids channel for our symbol
	sub := map[string]interface{}{
		"method": "subscribe",
		"subscription": map[string]string{
			"type": "allMids",
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	log.Info().Str("url", s.wsURL).Msg("🔌 Reference stream connected")
	return nil
}

func (s *ReferenceStream) readMessages() {
	for s.running {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if s.running {
				log.Error().Err(err).Msg("Reference stream read error")
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *ReferenceStream) handleMessage(data []byte) {
	var msg struct {
		Channel string `json:"channel"`
		Data    struct {
			Mids map[string]string `json:"mids"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Channel != "allMids" {
		return
	}

	raw, ok := msg.Data.Mids[s.symbol]
	if !ok {
		return
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.tick = &engine.PriceTick{Time: time.Now(), Price: price}
	s.mu.Unlock()
}
