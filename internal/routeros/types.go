package routeros

import (
	"strconv"
	"strings"
	"time"

	goros "github.com/go-routeros/routeros/v3"
)

// PingResult is the typed form of a /ping reply. The final statistics row
// wins; Received > 0 means reachable.
type PingResult struct {
	Sent     int
	Received int
	Loss     int
	AvgRTT   time.Duration
}

// Reachable reports whether at least one echo came back.
func (p PingResult) Reachable() bool {
	return p.Received > 0
}

// PPPSession is one row of /ppp/active/print.
type PPPSession struct {
	Name     string
	Address  string
	Service  string
	CallerID string
	Uptime   string
}

// QueueRow is one row of /queue/simple/print.
type QueueRow struct {
	Name     string
	Target   string
	MaxLimit string
	Disabled bool
}

func rowsFromReply(reply *goros.Reply) []map[string]string {
	if reply == nil {
		return nil
	}
	rows := make([]map[string]string, 0, len(reply.Re))
	for _, re := range reply.Re {
		if re == nil {
			continue
		}
		row := make(map[string]string, len(re.Map))
		for key, value := range re.Map {
			row[key] = value
		}
		rows = append(rows, row)
	}
	return rows
}

func mapPingRows(rows []map[string]string) PingResult {
	result := PingResult{}
	for _, row := range rows {
		if v, ok := intFromWord(row["sent"]); ok {
			result.Sent = v
		}
		if v, ok := intFromWord(row["received"]); ok {
			result.Received = v
		}
		if v, ok := intFromWord(strings.TrimSuffix(row["packet-loss"], "%")); ok {
			result.Loss = v
		}
		if rtt, err := time.ParseDuration(strings.TrimSpace(row["avg-rtt"])); err == nil {
			result.AvgRTT = rtt
		}
	}
	return result
}

func mapPPPRows(rows []map[string]string) []PPPSession {
	items := make([]PPPSession, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		if name == "" {
			continue
		}
		items = append(items, PPPSession{
			Name:     name,
			Address:  strings.TrimSpace(row["address"]),
			Service:  strings.TrimSpace(row["service"]),
			CallerID: strings.TrimSpace(row["caller-id"]),
			Uptime:   strings.TrimSpace(row["uptime"]),
		})
	}
	return items
}

func mapQueueRows(rows []map[string]string) []QueueRow {
	items := make([]QueueRow, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row["name"])
		target := strings.TrimSpace(row["target"])
		if name == "" && target == "" {
			continue
		}
		items = append(items, QueueRow{
			Name:     name,
			Target:   target,
			MaxLimit: strings.TrimSpace(row["max-limit"]),
			Disabled: boolFromWord(row["disabled"]),
		})
	}
	return items
}

func intFromWord(raw string) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return value, true
}

func boolFromWord(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes":
		return true
	default:
		return false
	}
}
