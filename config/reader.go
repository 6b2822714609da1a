package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

type Custom struct {
	Network struct {
		Transport string `toml:"transport"`
		Host      string `toml:"host"`
		Port      int    `toml:"port"`
	} `toml:"network"`
	Server struct {
		Root        string `toml:"root"`
		Once        bool   `toml:"once"`
		Idle        int    `toml:"idle"`
		Linger      int    `toml:"linger"`
		MaxSessions int    `toml:"max-sessions"`
	} `toml:"server"`
	Client struct {
		Output     string `toml:"output"`
		Attempts   int    `toml:"attempts"`
		Timeout    int    `toml:"timeout"`
		MaxTimeout int    `toml:"max-timeout"`
	} `toml:"client"`
	Storage struct {
		Dir        string `toml:"dir"`
		ValueLogGC bool   `toml:"value-log-gc"`
	} `toml:"storage"`
	RPC struct {
		Port int `toml:"port"`
	} `toml:"rpc"`
	Log struct {
		Level   int    `toml:"level"`
		Filter  string `toml:"filter"`
		Limiter int    `toml:"limiter"`
	} `toml:"log"`
}

func Initialize(file string) (*Custom, error) {
	f, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var config Custom
	err = toml.Unmarshal(f, &config)
	if err != nil {
		return nil, err
	}
	config.fill()
	return &config, config.validate()
}

func Default() *Custom {
	var config Custom
	config.fill()
	return &config
}

func (c *Custom) Address() string {
	return fmt.Sprintf("%s:%d", c.Network.Host, c.Network.Port)
}

func (c *Custom) IdleTimeout() time.Duration {
	return time.Duration(c.Server.Idle) * time.Second
}

func (c *Custom) LingerPeriod() time.Duration {
	return time.Duration(c.Server.Linger) * time.Second
}

func (c *Custom) ClientTimeout() time.Duration {
	return time.Duration(c.Client.Timeout) * time.Millisecond
}

func (c *Custom) ClientMaxTimeout() time.Duration {
	return time.Duration(c.Client.MaxTimeout) * time.Millisecond
}

func (c *Custom) fill() {
	if c.Network.Transport == "" {
		c.Network.Transport = DefaultTransport
	}
	if c.Network.Host == "" {
		c.Network.Host = DefaultHost
	}
	if c.Network.Port == 0 {
		c.Network.Port = DefaultPort
	}
	if c.Server.Root == "" {
		c.Server.Root = DefaultServerRoot
	}
	if c.Server.Idle == 0 {
		c.Server.Idle = int(SessionIdleTimeout / time.Second)
	}
	if c.Server.Linger == 0 {
		c.Server.Linger = int(SessionLinger / time.Second)
	}
	if c.Client.Output == "" {
		c.Client.Output = DefaultClientOutput
	}
	if c.Client.Attempts == 0 {
		c.Client.Attempts = ClientAttempts
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = int(ClientTimeout / time.Millisecond)
	}
	if c.Client.MaxTimeout == 0 {
		c.Client.MaxTimeout = int(ClientMaximumTimeout / time.Millisecond)
	}
	if c.Log.Level == 0 {
		c.Log.Level = 2
	}
}

func (c *Custom) validate() error {
	switch c.Network.Transport {
	case "udp", "quic":
	default:
		return fmt.Errorf("invalid network transport %s", c.Network.Transport)
	}
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		return fmt.Errorf("invalid network port %d", c.Network.Port)
	}
	if c.Client.MaxTimeout < c.Client.Timeout {
		return fmt.Errorf("invalid client timeouts %d > %d", c.Client.Timeout, c.Client.MaxTimeout)
	}
	return nil
}
