// Package server runs the HTTP listener and its graceful shutdown.
package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Defaults applied by main when no flag overrides them.
const (
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds HTTP server configuration parameters.
//
// It defines timeouts, size limits, and network settings for the HTTP server.
type Config struct {
	Host            string        // Interface to bind, empty for all
	Port            string        // Port number to listen on
	ReadTimeout     time.Duration // Maximum duration for reading the entire request
	WriteTimeout    time.Duration // Maximum duration for writing the response
	IdleTimeout     time.Duration // Maximum duration to wait for next request with keep-alives
	MaxHeaderBytes  int           // Maximum size of request headers, Forwarded included
	ShutdownTimeout time.Duration // Maximum duration to wait for in-flight requests on shutdown
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate validates that the server configuration is valid.
//
// A valid configuration has:
//   - a numeric port within the TCP range (1-65535)
//   - no negative timeouts; zero means no timeout
//   - a positive header size limit
//
// Returns all validation failures joined, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	portNum, err := strconv.Atoi(c.Port)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid port number: %s (must be numeric)", c.Port))
	case portNum < 1 || portNum > 65535:
		errs = append(errs, fmt.Errorf("invalid port number: %s (must be between 1 and 65535)", c.Port))
	}

	for _, timeout := range []struct {
		name  string
		value time.Duration
	}{
		{"read timeout", c.ReadTimeout},
		{"write timeout", c.WriteTimeout},
		{"idle timeout", c.IdleTimeout},
		{"shutdown timeout", c.ShutdownTimeout},
	} {
		if timeout.value < 0 {
			errs = append(errs, fmt.Errorf("invalid %s: %s (must not be negative)", timeout.name, timeout.value))
		}
	}

	if c.MaxHeaderBytes <= 0 {
		errs = append(errs, fmt.Errorf("invalid max header bytes: %d (must be positive)", c.MaxHeaderBytes))
	}

	return errors.Join(errs...)
}
