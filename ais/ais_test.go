package ais

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/projectqai/fleetwatch/vessel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayCapsAt60Seconds(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 4*time.Second, backoffDelay(2))
	assert.Equal(t, 60*time.Second, backoffDelay(10))
	assert.Equal(t, 60*time.Second, backoffDelay(20))
}

func newTestClient(cfg Config) *Client {
	return New(cfg)
}

func TestAdmitAutonomousAlwaysAdmittedRegardlessOfCapacity(t *testing.T) {
	c := newTestClient(Config{MaxVessels: 1})
	for i := 0; i < 5; i++ {
		c.cache[vessel.Id(string(rune('a'+i)))] = &vessel.State{}
	}

	cls, ok := c.admit(AutonomousMMSIList[0], 0)
	assert.True(t, ok)
	assert.Equal(t, vessel.ClassAutonomous, cls)
}

func TestAdmitRejectsNonAllowlistedWithoutFallback(t *testing.T) {
	c := newTestClient(Config{UseShipTypeFallback: false})
	_, ok := c.admit("123456789", 70)
	assert.False(t, ok, "fallback disabled: an unlisted MMSI must be rejected even with a cargo/tanker ship type")
}

func TestAdmitAcceptsCargoTankerWithFallbackEnabled(t *testing.T) {
	c := newTestClient(Config{UseShipTypeFallback: true})
	cls, ok := c.admit("123456789", 75)
	assert.True(t, ok)
	assert.Equal(t, vessel.ClassCargoTanker, cls)
}

func TestAdmitDropsNonAutonomousAtCapacity(t *testing.T) {
	c := newTestClient(Config{UseShipTypeFallback: true, MaxVessels: 1})
	c.cache["111111111"] = &vessel.State{Id: "111111111"}

	_, ok := c.admit("222222222", 75)
	assert.False(t, ok, "cache at capacity must drop further non-autonomous observations")
}

func TestHandlePositionReportScenario(t *testing.T) {
	var callbackPatch *vessel.Patch
	c := newTestClient(Config{
		MessageCallback: func(id vessel.Id, p vessel.Patch) { callbackPatch = &p },
	})

	// Autonomous allowlisted identity at a valid fix must be admitted.
	c.handlePositionReport(AutonomousMMSIList[len(AutonomousMMSIList)-1], "HMM ALGECIRAS",
		positionReportBody{Latitude: 12.3, Longitude: 45.6, Cog: 88, Sog: 15.2})

	rec := c.CachedVessel(AutonomousMMSIList[len(AutonomousMMSIList)-1])
	require.NotNil(t, rec)
	assert.Equal(t, vessel.ClassAutonomous, rec.Classification)
	assert.Equal(t, 12.3, rec.Lat)
	assert.Equal(t, 45.6, rec.Lon)
	require.NotNil(t, callbackPatch)

	// The same identity at (0,0) must be rejected as the null-island sentinel.
	c.handlePositionReport(AutonomousMMSIList[len(AutonomousMMSIList)-1], "HMM ALGECIRAS",
		positionReportBody{Latitude: 0, Longitude: 0, Cog: 1, Sog: 1})

	rec2 := c.CachedVessel(AutonomousMMSIList[len(AutonomousMMSIList)-1])
	require.NotNil(t, rec2)
	assert.Equal(t, 12.3, rec2.Lat, "null-island update must not overwrite the last valid fix")
	assert.Equal(t, 1, c.Stats().MessagesFiltered)

	// An unlisted identity with fallback filtering disabled must be dropped.
	c2 := newTestClient(Config{UseShipTypeFallback: false})
	c2.handlePositionReport("123456789", "UNKNOWN", positionReportBody{Latitude: 1, Longitude: 1})
	assert.Nil(t, c2.CachedVessel("123456789"))
}

func TestHandlePositionReportRejectsOutOfRangeCoordinates(t *testing.T) {
	c := newTestClient(Config{})
	id := AutonomousMMSIList[0]

	c.handlePositionReport(id, "A", positionReportBody{Latitude: 91, Longitude: 10})
	c.handlePositionReport(id, "A", positionReportBody{Latitude: 10, Longitude: -181})

	assert.Nil(t, c.CachedVessel(id))
	assert.Equal(t, 2, c.Stats().MessagesFiltered)
}

func TestHandlePositionReportNormalisesCourseAndClampsSpeed(t *testing.T) {
	c := newTestClient(Config{})
	id := AutonomousMMSIList[0]

	c.handlePositionReport(id, "A", positionReportBody{Latitude: 1, Longitude: 1, Cog: 370, Sog: -3})

	rec := c.CachedVessel(id)
	require.NotNil(t, rec)
	assert.InDelta(t, 10.0, rec.Course, 1e-9)
	assert.Equal(t, 0.0, rec.Speed)
}

func TestHandleStaticDataSetsDimensionsAndEta(t *testing.T) {
	c := newTestClient(Config{})
	id := AutonomousMMSIList[0]

	c.handleStaticData(id, shipStaticDataBody{
		Name:        "YARA BIRKELAND",
		Destination: "OSLO ",
		Draught:     6.5,
		Dimension:   dimensionBody{A: 60, B: 20, C: 8, D: 7},
		Eta:         etaBody{Month: 8, Day: 15, Hour: 14, Minute: 30},
	})

	rec := c.CachedVessel(id)
	require.NotNil(t, rec)
	assert.Equal(t, "YARA BIRKELAND", rec.Name)
	assert.Equal(t, "OSLO", rec.Destination)
	assert.Equal(t, 80.0, rec.Length)
	assert.Equal(t, 15.0, rec.Width)
	require.NotNil(t, rec.Eta)
	assert.Equal(t, 8, rec.Eta.Month)
	assert.Equal(t, 15, rec.Eta.Day)
}

func TestHandleStaticDataOmitsEtaWhenMonthOrDayZero(t *testing.T) {
	c := newTestClient(Config{})
	id := AutonomousMMSIList[0]
	c.handleStaticData(id, shipStaticDataBody{Name: "X", Eta: etaBody{Month: 0, Day: 0}})

	rec := c.CachedVessel(id)
	require.NotNil(t, rec)
	assert.Nil(t, rec.Eta)
}

func TestQueueDropsOldestOnOverflow(t *testing.T) {
	c := newTestClient(Config{MaxQueueSize: 2})
	id := AutonomousMMSIList[0]

	c.handlePositionReport(id, "A", positionReportBody{Latitude: 1, Longitude: 1})
	c.handlePositionReport(id, "A", positionReportBody{Latitude: 2, Longitude: 2})
	c.handlePositionReport(id, "A", positionReportBody{Latitude: 3, Longitude: 3})

	items := c.Drain(0)
	require.Len(t, items, 2)
	assert.Equal(t, 2.0, *items[0].Patch.Lat)
	assert.Equal(t, 3.0, *items[1].Patch.Lat)
}

func TestDrainPartial(t *testing.T) {
	c := newTestClient(Config{MaxQueueSize: 10})
	id := AutonomousMMSIList[0]
	for i := 0; i < 5; i++ {
		c.handlePositionReport(id, "A", positionReportBody{Latitude: float64(i + 1), Longitude: 1})
	}

	first := c.Drain(2)
	require.Len(t, first, 2)
	assert.Equal(t, 3, c.Stats().QueueDepth)

	rest := c.Drain(0)
	assert.Len(t, rest, 3)
	assert.Equal(t, 0, c.Stats().QueueDepth)
}

// --- Integration over an in-process WebSocket server ---

var upgrader = websocket.Upgrader{}

func newEchoSubscribeServer(t *testing.T, messages [][]byte) (*httptest.Server, chan []byte) {
	t.Helper()
	received := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, sub, err := conn.ReadMessage()
		if err == nil {
			received <- sub
		}

		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, m); err != nil {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}))
	return srv, received
}

type testDialer struct{ d *websocket.Dialer }

func (td testDialer) DialContext(ctx context.Context, urlStr string, h map[string][]string) (*websocket.Conn, error) {
	conn, _, err := td.d.DialContext(ctx, urlStr, nil)
	return conn, err
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClientStreamsPositionReportEndToEnd(t *testing.T) {
	positionMsg := []byte(`{"MessageType":"PositionReport","MetaData":{"MMSI":440326000,"ShipName":"HMM ALGECIRAS"},"Message":{"PositionReport":{"Latitude":12.3,"Longitude":45.6,"Cog":88,"Sog":15.2,"Type":0}}}`)

	srv, received := newEchoSubscribeServer(t, [][]byte{positionMsg})
	defer srv.Close()

	var mu sync.Mutex
	var callbacks int
	c := New(Config{
		Endpoint: wsURL(srv.URL),
		Dialer:   testDialer{d: websocket.DefaultDialer},
		MessageCallback: func(vessel.Id, vessel.Patch) {
			mu.Lock()
			callbacks++
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Start(ctx)

	select {
	case sub := <-received:
		assert.Contains(t, string(sub), "FilterMessageTypes")
	case <-time.After(time.Second):
		t.Fatal("server never received a subscribe frame")
	}

	require.Eventually(t, func() bool {
		return c.Stats().CachedVessels == 1
	}, time.Second, 10*time.Millisecond)

	rec := c.CachedVessel("440326000")
	require.NotNil(t, rec)
	assert.Equal(t, vessel.ClassAutonomous, rec.Classification)

	mu.Lock()
	gotCallbacks := callbacks
	mu.Unlock()
	assert.Equal(t, 1, gotCallbacks)

	c.Stop()
}

func TestClientReconnectBudgetExhaustedTransitionsToStopped(t *testing.T) {
	c := New(Config{
		Dialer: failingDialer{err: errors.New("connection refused")},
	})
	c.backoffFn = func(int) time.Duration { return time.Millisecond }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Start(ctx)

	require.Eventually(t, func() bool {
		return c.Stats().State == Stopped
	}, 4*time.Second, 5*time.Millisecond)

	st := c.Stats()
	assert.GreaterOrEqual(t, st.Attempts, maxReconnectAttempts)
	require.Error(t, st.TerminalErr)
}

type failingDialer struct{ err error }

func (f failingDialer) DialContext(ctx context.Context, urlStr string, h map[string][]string) (*websocket.Conn, error) {
	return nil, f.err
}
