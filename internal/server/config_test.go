package server

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:           "8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", modify: func(c *Config) {}, wantErr: false},
		{name: "valid low port", modify: func(c *Config) { c.Port = "1" }, wantErr: false},
		{name: "valid high port", modify: func(c *Config) { c.Port = "65535" }, wantErr: false},
		{name: "zero timeouts allowed", modify: func(c *Config) { c.ReadTimeout, c.WriteTimeout, c.IdleTimeout = 0, 0, 0 }, wantErr: false},
		{name: "invalid - non-numeric", modify: func(c *Config) { c.Port = "abc" }, wantErr: true},
		{name: "invalid - port too low", modify: func(c *Config) { c.Port = "0" }, wantErr: true},
		{name: "invalid - port too high", modify: func(c *Config) { c.Port = "65536" }, wantErr: true},
		{name: "invalid - negative port", modify: func(c *Config) { c.Port = "-1" }, wantErr: true},
		{name: "invalid - empty port", modify: func(c *Config) { c.Port = "" }, wantErr: true},
		{name: "invalid - port with spaces", modify: func(c *Config) { c.Port = "80 80" }, wantErr: true},
		{name: "invalid - negative read timeout", modify: func(c *Config) { c.ReadTimeout = -time.Second }, wantErr: true},
		{name: "invalid - negative shutdown timeout", modify: func(c *Config) { c.ShutdownTimeout = -time.Second }, wantErr: true},
		{name: "invalid - zero header limit", modify: func(c *Config) { c.MaxHeaderBytes = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		host, port, want string
	}{
		{"", "8000", ":8000"},
		{"127.0.0.1", "8000", "127.0.0.1:8000"},
		{"::1", "8000", "[::1]:8000"},
	}
	for _, tt := range tests {
		c := Config{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}
