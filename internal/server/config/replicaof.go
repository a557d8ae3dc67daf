package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseReplicaOf parses a master address given as "host port" (the form
// redis-server accepts for --replicaof) or "host:port".
func ParseReplicaOf(s string) (string, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, fmt.Errorf("replicaof: empty address")
	}

	var host, port string
	if fields := strings.Fields(s); len(fields) == 2 {
		host, port = fields[0], fields[1]
	} else if len(fields) == 1 {
		h, p, err := net.SplitHostPort(s)
		if err != nil {
			return "", 0, fmt.Errorf("replicaof: %w", err)
		}
		host, port = h, p
	} else {
		return "", 0, fmt.Errorf("replicaof: expected \"host port\", got %q", s)
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", 0, fmt.Errorf("replicaof: invalid port %q", port)
	}
	if host == "" {
		return "", 0, fmt.Errorf("replicaof: empty host")
	}
	return host, n, nil
}
