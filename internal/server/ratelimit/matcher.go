package ratelimit

import (
	"path"
	"strings"
)

// MatchEndpoint returns the configuration governing a request, or nil to use
// the default. Rules are tried as exact paths, then as path.Match globs
// ("/sessions/*/analysis"), then as prefixes for paths ending in "/".
func MatchEndpoint(reqPath string, method string, configs []EndpointConfig) *EndpointConfig {
	if reqPath == "/health" && method == "GET" {
		return &EndpointConfig{Path: reqPath, Method: method}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && c.Path == reqPath {
			return c
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method != method || !strings.Contains(c.Path, "*") {
			continue
		}
		if ok, err := path.Match(c.Path, reqPath); err == nil && ok {
			return c
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(reqPath, c.Path) {
			return c
		}
	}

	return nil
}
