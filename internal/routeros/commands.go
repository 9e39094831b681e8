package routeros

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Ping proxies an ICMP probe through the router.
func (c *Client) Ping(ctx context.Context, address string, count int) (PingResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return PingResult{}, &ValidationError{Field: "address", Reason: "is required"}
	}
	if count <= 0 {
		count = 3
	}

	reply, err := c.Run(ctx, "/ping", "=address="+address, "=count="+strconv.Itoa(count))
	if err != nil {
		return PingResult{}, fmt.Errorf("ping %s: %w", address, err)
	}
	return mapPingRows(rowsFromReply(reply)), nil
}

// ActiveSession looks up the PPP active table for one account. A nil result
// with nil error means no session.
func (c *Client) ActiveSession(ctx context.Context, username string) (*PPPSession, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Reason: "is required"}
	}

	reply, err := c.Run(ctx, "/ppp/active/print", "?name="+username)
	if err != nil {
		return nil, fmt.Errorf("ppp active lookup %s: %w", username, err)
	}
	sessions := mapPPPRows(rowsFromReply(reply))
	if len(sessions) == 0 {
		return nil, nil
	}
	session := sessions[0]
	return &session, nil
}

// Queue finds the simple queue whose target contains the given address.
func (c *Client) Queue(ctx context.Context, address string) (*QueueRow, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &ValidationError{Field: "address", Reason: "is required"}
	}

	reply, err := c.Run(ctx, "/queue/simple/print", "=.proplist=name,target,max-limit,disabled")
	if err != nil {
		return nil, fmt.Errorf("simple queue lookup %s: %w", address, err)
	}
	for _, row := range mapQueueRows(rowsFromReply(reply)) {
		if strings.Contains(row.Target, address) {
			queue := row
			return &queue, nil
		}
	}
	return nil, nil
}

// Identity returns the router's configured name, as liveness probe.
func (c *Client) Identity(ctx context.Context) (string, error) {
	reply, err := c.Run(ctx, "/system/identity/print")
	if err != nil {
		return "", err
	}
	for _, row := range rowsFromReply(reply) {
		if name := strings.TrimSpace(row["name"]); name != "" {
			return name, nil
		}
	}
	return "", nil
}
