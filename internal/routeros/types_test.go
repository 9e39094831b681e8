package routeros

import (
	"testing"
	"time"
)

func TestMapPingRowsUsesFinalStatistics(t *testing.T) {
	rows := []map[string]string{
		{"seq": "0", "host": "10.0.0.5", "time": "4ms"},
		{"seq": "1", "host": "10.0.0.5", "time": "5ms"},
		{"sent": "3", "received": "2", "packet-loss": "33%", "avg-rtt": "4ms"},
	}

	result := mapPingRows(rows)
	if result.Sent != 3 {
		t.Fatalf("unexpected sent %d", result.Sent)
	}
	if result.Received != 2 {
		t.Fatalf("unexpected received %d", result.Received)
	}
	if result.Loss != 33 {
		t.Fatalf("unexpected loss %d", result.Loss)
	}
	if result.AvgRTT != 4*time.Millisecond {
		t.Fatalf("unexpected avg rtt %s", result.AvgRTT)
	}
	if !result.Reachable() {
		t.Fatalf("expected reachable with received > 0")
	}
}

func TestMapPingRowsAllLost(t *testing.T) {
	rows := []map[string]string{
		{"sent": "3", "received": "0", "packet-loss": "100%"},
	}
	if mapPingRows(rows).Reachable() {
		t.Fatalf("expected unreachable with zero received")
	}
}

func TestMapPPPRowsSkipsNameless(t *testing.T) {
	rows := []map[string]string{
		{"name": "client-a", "address": "10.10.0.2", "service": "pppoe", "uptime": "1h2m"},
		{"address": "10.10.0.3"},
	}

	items := mapPPPRows(rows)
	if len(items) != 1 {
		t.Fatalf("expected 1 session, got %d", len(items))
	}
	if items[0].Name != "client-a" || items[0].Address != "10.10.0.2" {
		t.Fatalf("unexpected session %+v", items[0])
	}
}

func TestMapQueueRows(t *testing.T) {
	rows := []map[string]string{
		{"name": "q-client", "target": "10.20.0.7/32", "max-limit": "10M/10M", "disabled": "no"},
		{"name": "q-off", "target": "10.20.0.8/32", "disabled": "yes"},
		{},
	}

	items := mapQueueRows(rows)
	if len(items) != 2 {
		t.Fatalf("expected 2 queues, got %d", len(items))
	}
	if items[0].Disabled {
		t.Fatalf("expected enabled queue")
	}
	if !items[1].Disabled {
		t.Fatalf("expected disabled queue")
	}
}
