package deployconfig

import (
	"fmt"
	"strconv"

	"github.com/docker/go-connections/nat"
)

// Port returns the TCP port stored under key.
func (c *ResolvedConfig) Port(key string) (int, error) {
	raw, err := c.String(key)
	if err != nil {
		return 0, err
	}

	port, err := nat.ParsePort(raw)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port '%s'", raw)
	}
	return port, nil
}

// LocalURL returns http://localhost:<port> for the port stored under key.
func (c *ResolvedConfig) LocalURL(key string) (string, error) {
	port, err := c.Port(key)
	if err != nil {
		return "", err
	}
	return "http://localhost:" + strconv.Itoa(port), nil
}
