// Package ais implements the live AIS ingest client: a resilient
// WebSocket streaming client that normalises position reports and
// static-data messages into vessel.Patch updates, re-filters them against
// an autonomous-vessel allowlist (the transport-side filter is treated as
// unreliable), and back-pressures a bounded drop-head queue.
package ais

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/projectqai/fleetwatch/geo"
	"github.com/projectqai/fleetwatch/vessel"
)

// State is a node in the ingest client's connection state machine.
type State int

const (
	Idle State = iota
	Connecting
	Subscribed
	Streaming
	Draining
	Backoff
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Connecting:
		return "CONNECTING"
	case Subscribed:
		return "SUBSCRIBED"
	case Streaming:
		return "STREAMING"
	case Draining:
		return "DRAINING"
	case Backoff:
		return "BACKOFF"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

const maxReconnectAttempts = 10

// AutonomousMMSIList enumerates the real-world autonomous vessels tracked
// ahead of everything else, regardless of cache capacity.
var AutonomousMMSIList = []vessel.Id{
	"257646000", // Yara Birkeland
	"259005610", // Therese
	"258022650", // Marit
	"352986205", // Prism Courage
	"440326000", // HMM Algeciras
}

var autonomousMMSISet = func() map[vessel.Id]bool {
	m := make(map[vessel.Id]bool, len(AutonomousMMSIList))
	for _, id := range AutonomousMMSIList {
		m[id] = true
	}
	return m
}()

// isCargoTankerType reports whether shipType falls in the AIS cargo/tanker
// code range (70-79 cargo, 80-89 tanker, including LNG/LPG).
func isCargoTankerType(shipType int) bool {
	return shipType >= 70 && shipType <= 89
}

// Dialer is the subset of *websocket.Dialer the client depends on, so
// tests can substitute a dialer pointed at an in-process test server.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader map[string][]string) (*websocket.Conn, error)
}

type dialerAdapter struct{ d *websocket.Dialer }

func (a dialerAdapter) DialContext(ctx context.Context, urlStr string, h map[string][]string) (*websocket.Conn, error) {
	conn, _, err := a.d.DialContext(ctx, urlStr, h)
	return conn, err
}

// Config configures a Client.
type Config struct {
	Endpoint            string
	APIKey              string
	BoundingBoxes       [][2][2]float64
	MaxQueueSize        int
	MaxVessels          int
	UseShipTypeFallback bool
	MessageCallback     func(vessel.Id, vessel.Patch)
	Dialer              Dialer
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = "wss://stream.aisstream.io/v0/stream"
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 1000
	}
	if c.MaxVessels <= 0 {
		c.MaxVessels = 20
	}
	if len(c.BoundingBoxes) == 0 {
		c.BoundingBoxes = [][2][2]float64{{{-90, -180}, {90, 180}}}
	}
	if c.Dialer == nil {
		c.Dialer = dialerAdapter{d: websocket.DefaultDialer}
	}
	return c
}

type subscribeFrame struct {
	APIKey             string          `json:"APIKey"`
	BoundingBoxes      [][2][2]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string        `json:"FilterMessageTypes"`
}

func (c Config) subscribeFrame() subscribeFrame {
	return subscribeFrame{
		APIKey:             c.APIKey,
		BoundingBoxes:      c.BoundingBoxes,
		FilterMessageTypes: []string{"PositionReport", "ShipStaticData"},
	}
}

// envelope is the tagged wire message AISStream-compatible endpoints send.
type envelope struct {
	MessageType string          `json:"MessageType"`
	MetaData    metaData        `json:"MetaData"`
	Message     json.RawMessage `json:"Message"`
}

type metaData struct {
	MMSI     json.Number `json:"MMSI"`
	ShipName string      `json:"ShipName"`
}

type positionReportEnvelope struct {
	PositionReport positionReportBody `json:"PositionReport"`
}

type positionReportBody struct {
	Type               int     `json:"Type"`
	Latitude           float64 `json:"Latitude"`
	Longitude          float64 `json:"Longitude"`
	Cog                float64 `json:"Cog"`
	Sog                float64 `json:"Sog"`
	TrueHeading        float64 `json:"TrueHeading"`
	NavigationalStatus int     `json:"NavigationalStatus"`
	PositionAccuracy   bool    `json:"PositionAccuracy"`
}

type shipStaticDataEnvelope struct {
	ShipStaticData shipStaticDataBody `json:"ShipStaticData"`
}

type shipStaticDataBody struct {
	Type        int           `json:"Type"`
	Name        string        `json:"Name"`
	Destination string        `json:"Destination"`
	Draught     float64       `json:"Draught"`
	Dimension   dimensionBody `json:"Dimension"`
	Eta         etaBody       `json:"Eta"`
}

type dimensionBody struct {
	A float64 `json:"A"`
	B float64 `json:"B"`
	C float64 `json:"C"`
	D float64 `json:"D"`
}

type etaBody struct {
	Month  int `json:"Month"`
	Day    int `json:"Day"`
	Hour   int `json:"Hour"`
	Minute int `json:"Minute"`
}

// QueueItem is one back-pressured queue entry awaiting a driver drain.
type QueueItem struct {
	Id    vessel.Id
	Patch vessel.Patch
}

// Stats is a point-in-time snapshot of client statistics.
type Stats struct {
	MessagesReceived int
	MessagesFiltered int
	ParseErrors      int
	LastUpdate       time.Time
	State            State
	Attempts         int
	CachedVessels    int
	QueueDepth       int
	TerminalErr      error
}

// Client is the AIS ingest client: a connection-lifecycle state machine
// over a WebSocket transport, an identity cache mirroring admitted
// vessels, and a bounded drop-head message queue.
type Client struct {
	cfg Config

	mu       sync.RWMutex
	state    State
	attempts int
	termErr  error

	cache map[vessel.Id]*vessel.State
	queue []QueueItem
	stats Stats

	stopOnce sync.Once
	stopCh   chan struct{}

	// backoffFn computes the reconnect delay for attempt n. Overridable
	// in tests to avoid waiting out the real exponential schedule;
	// defaults to min(2^n, 60) seconds.
	backoffFn func(int) time.Duration
}

// New constructs an idle Client.
func New(cfg Config) *Client {
	return &Client{
		cfg:       cfg.withDefaults(),
		state:     Idle,
		cache:     make(map[vessel.Id]*vessel.State),
		stopCh:    make(chan struct{}),
		backoffFn: backoffDelay,
	}
}

// Start begins the connect/stream/backoff loop in a background goroutine.
// It is a no-op if the client is already running or stopped.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return
	}
	c.state = Connecting
	c.mu.Unlock()

	go c.run(ctx)
}

// Stop transitions the client to Stopped from any state. Stopped is
// terminal: a stopped client cannot be restarted.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.setState(Stopped)
}

func (c *Client) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.setState(Stopped)
			return
		case <-c.stopCh:
			c.setState(Stopped)
			return
		default:
		}

		c.setState(Connecting)
		err := c.connectAndStream(ctx)

		if c.getState() == Stopped {
			return
		}
		if err == nil {
			// Clean shutdown requested mid-stream.
			c.setState(Stopped)
			return
		}

		attempts := c.bumpAttempts()
		if attempts >= maxReconnectAttempts {
			c.mu.Lock()
			c.termErr = fmt.Errorf("ais: reconnect budget exhausted after %d attempts: %w", attempts, err)
			c.mu.Unlock()
			c.setState(Stopped)
			return
		}

		c.setState(Backoff)
		delay := c.backoffFn(attempts)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(Stopped)
			return
		case <-c.stopCh:
			c.setState(Stopped)
			return
		}
	}
}

// backoffDelay computes min(2^n, 60) seconds for reconnect attempt n.
func backoffDelay(n int) time.Duration {
	secs := math.Min(math.Pow(2, float64(n)), 60)
	return time.Duration(secs * float64(time.Second))
}

func (c *Client) connectAndStream(ctx context.Context) error {
	conn, err := c.cfg.Dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("ais: dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(c.cfg.subscribeFrame()); err != nil {
		return fmt.Errorf("ais: subscribe: %w", err)
	}

	c.resetAttempts()
	c.setState(Subscribed)
	c.setState(Streaming)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ais: read: %w", err)
		}

		c.setState(Draining)
		c.processMessage(raw)
		c.setState(Streaming)
	}
}

// processMessage parses one raw frame and dispatches it by MessageType.
// Parse failures are counted, not fatal: the stream continues.
func (c *Client) processMessage(raw []byte) {
	c.mu.Lock()
	c.stats.MessagesReceived++
	c.mu.Unlock()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.mu.Lock()
		c.stats.ParseErrors++
		c.mu.Unlock()
		return
	}

	mmsiNum, err := env.MetaData.MMSI.Int64()
	if err != nil {
		c.mu.Lock()
		c.stats.ParseErrors++
		c.mu.Unlock()
		return
	}
	id := vessel.Id(strconv.FormatInt(mmsiNum, 10))
	shipName := strings.TrimSpace(env.MetaData.ShipName)

	switch env.MessageType {
	case "PositionReport":
		var body positionReportEnvelope
		if err := json.Unmarshal(env.Message, &body); err != nil {
			c.mu.Lock()
			c.stats.ParseErrors++
			c.mu.Unlock()
			return
		}
		c.handlePositionReport(id, shipName, body.PositionReport)

	case "ShipStaticData":
		var body shipStaticDataEnvelope
		if err := json.Unmarshal(env.Message, &body); err != nil {
			c.mu.Lock()
			c.stats.ParseErrors++
			c.mu.Unlock()
			return
		}
		c.handleStaticData(id, body.ShipStaticData)
	}
}

// admit applies the autonomous-allowlist / ship-type-fallback / capacity
// admission rule shared by both message handlers. The transport-side
// filter is never trusted; this re-filter is mandatory.
func (c *Client) admit(id vessel.Id, shipType int) (classification vessel.Classification, ok bool) {
	isAutonomous := autonomousMMSISet[id]
	isCargoTanker := c.cfg.UseShipTypeFallback && isCargoTankerType(shipType)

	if !isAutonomous && !isCargoTanker {
		return "", false
	}
	if !isAutonomous && len(c.cache) >= c.cfg.MaxVessels {
		return "", false
	}
	if isAutonomous {
		return vessel.ClassAutonomous, true
	}
	return vessel.ClassCargoTanker, true
}

func (c *Client) handlePositionReport(id vessel.Id, shipName string, msg positionReportBody) {
	if !vessel.ValidPosition(msg.Latitude, msg.Longitude) {
		c.mu.Lock()
		c.stats.MessagesFiltered++
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cls, ok := c.admit(id, msg.Type)
	if !ok {
		c.stats.MessagesFiltered++
		return
	}

	lat, lon := msg.Latitude, msg.Longitude
	course := geo.NormalizeCourse(msg.Cog)
	speed := msg.Sog
	if speed < 0 {
		speed = 0
	}
	heading := msg.TrueHeading
	posAccurate := msg.PositionAccuracy
	now := time.Now().UTC()
	source := vessel.SourceAIS

	patch := vessel.Patch{
		Classification:   &cls,
		Lat:              &lat,
		Lon:              &lon,
		Course:           &course,
		Speed:            &speed,
		Heading:          &heading,
		PositionAccurate: &posAccurate,
		Timestamp:        &now,
		DataSource:       &source,
	}
	if _, known := c.cache[id]; !known {
		name := shipName
		if name == "" {
			name = fmt.Sprintf("Unknown-%s", id)
		}
		patch.Name = &name
	}

	c.cache[id] = vessel.Merge(c.cache[id], id, patch)
	c.enqueueLocked(id, patch)
	c.stats.LastUpdate = now

	if c.cfg.MessageCallback != nil {
		c.cfg.MessageCallback(id, patch)
	}
}

func (c *Client) handleStaticData(id vessel.Id, msg shipStaticDataBody) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cls, ok := c.admit(id, msg.Type)
	if !ok {
		return
	}

	length := msg.Dimension.A + msg.Dimension.B
	width := msg.Dimension.C + msg.Dimension.D
	draught := msg.Draught
	destination := strings.TrimSpace(msg.Destination)
	now := time.Now().UTC()
	source := vessel.SourceAIS

	patch := vessel.Patch{
		Classification: &cls,
		Length:         &length,
		Width:          &width,
		Draught:        &draught,
		Destination:    &destination,
		Timestamp:      &now,
		DataSource:     &source,
	}
	if _, known := c.cache[id]; !known {
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			name = fmt.Sprintf("Unknown-%s", id)
		}
		patch.Name = &name
	}
	if msg.Eta.Month > 0 && msg.Eta.Day > 0 {
		eta := vessel.ETA{Month: msg.Eta.Month, Day: msg.Eta.Day, Hour: msg.Eta.Hour, Minute: msg.Eta.Minute}
		patch.Eta = &eta
	}

	c.cache[id] = vessel.Merge(c.cache[id], id, patch)
	c.enqueueLocked(id, patch)
	c.stats.LastUpdate = now

	if c.cfg.MessageCallback != nil {
		c.cfg.MessageCallback(id, patch)
	}
}

// enqueueLocked appends to the bounded FIFO, discarding the oldest entry
// on overflow. Callers must hold c.mu.
func (c *Client) enqueueLocked(id vessel.Id, patch vessel.Patch) {
	if len(c.queue) >= c.cfg.MaxQueueSize {
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, QueueItem{Id: id, Patch: patch})
}

// Drain removes up to max queued items (all of them if max<=0) in FIFO
// order, for the fleet driver to merge into the store.
func (c *Client) Drain(max int) []QueueItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.queue)
	if max > 0 && max < n {
		n = max
	}
	out := make([]QueueItem, n)
	copy(out, c.queue[:n])
	c.queue = c.queue[n:]
	return out
}

// CachedVessel returns a copy of the client's own identity-cache record
// for id, or nil if unknown.
func (c *Client) CachedVessel(id vessel.Id) *vessel.State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.cache[id]
	if !ok {
		return nil
	}
	out := *rec
	return &out
}

// Stats returns a point-in-time snapshot of client statistics.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.State = c.state
	s.Attempts = c.attempts
	s.CachedVessels = len(c.cache)
	s.QueueDepth = len(c.queue)
	s.TerminalErr = c.termErr
	return s
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) getState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) bumpAttempts() int {
	c.mu.Lock()
	c.attempts++
	n := c.attempts
	c.mu.Unlock()
	return n
}

func (c *Client) resetAttempts() {
	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
}
