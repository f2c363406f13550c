package stream

import (
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"amm-attack-lab/internal/domain"
)

func testAttack() *domain.AttackResult {
	return &domain.AttackResult{
		AttackID:            "attack-1",
		ScenarioID:          domain.ScenarioPumpAndDump,
		TriggersLiquidation: true,
		MaxRepayable:        big.NewInt(5000),
		SeizeTokens:         big.NewInt(4),
		Profit:              big.NewInt(0),
		Status:              domain.AttackStatusReported,
		Records: []*domain.ManipulationRecord{
			{
				AttackID:         "attack-1",
				Seq:              0,
				Kind:             domain.ManipulationPump,
				TargetAsset:      "ETH",
				OriginalPrice:    big.NewInt(2000),
				ManipulatedPrice: big.NewInt(2500),
				ImpactBps:        2500,
				Block:            100,
				Timestamp:        1700000000,
			},
		},
	}
}

// waitForClients polls until the hub sees n subscribers.
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients (have %d)", n, hub.ClientCount())
}

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHub_PublishDeliversEvent(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	conn := dialHub(t, server)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Publish(testAttack())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev AttackEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != "attack" || ev.AttackID != "attack-1" {
		t.Errorf("unexpected event header: %+v", ev)
	}
	if !ev.TriggersLiquidation {
		t.Error("liquidation flag lost")
	}
	if len(ev.Records) != 1 || ev.Records[0].ManipulatedPrice != "2500" {
		t.Errorf("unexpected records: %+v", ev.Records)
	}
}

func TestHub_FanOut(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	c1 := dialHub(t, server)
	defer c1.Close()
	c2 := dialHub(t, server)
	defer c2.Close()
	waitForClients(t, hub, 2)

	hub.Publish(testAttack())

	for i, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		var ev AttackEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("client %d unmarshal: %v", i, err)
		}
		if ev.AttackID != "attack-1" {
			t.Errorf("client %d got attack %s", i, ev.AttackID)
		}
	}
}

func TestHub_ClientDisconnectRemoves(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	conn := dialHub(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Publishing to an empty hub must not panic.
	hub.Publish(testAttack())
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil, nil)

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	conn := dialHub(t, server)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub close")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients remain after close: %d", hub.ClientCount())
	}
}
