package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server configures the standalone authority process.
type Server struct {
	Addr        string        `env:"KITCHEN_ADDR" envDefault:":8080"`
	KitchenPath string        `env:"KITCHEN_CONFIG"`
	SessionID   string        `env:"KITCHEN_SESSION_ID" envDefault:"default"`
	TickRate    int           `env:"KITCHEN_TICK_RATE" envDefault:"20"`
	TokenSecret string        `env:"KITCHEN_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"KITCHEN_TOKEN_TTL" envDefault:"12h"`
	LogLevel    string        `env:"KITCHEN_LOG_LEVEL" envDefault:"info"`
	NATSURL     string        `env:"KITCHEN_NATS_URL"`
	NATSPrefix  string        `env:"KITCHEN_NATS_PREFIX" envDefault:"kitchen"`
}

// ParseServer loads the server configuration from environment variables.
func ParseServer() (Server, error) {
	var s Server
	if err := env.Parse(&s); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if s.TokenSecret == "" {
		return Server{}, fmt.Errorf("KITCHEN_TOKEN_SECRET is required")
	}
	if s.TickRate <= 0 {
		return Server{}, fmt.Errorf("KITCHEN_TICK_RATE must be positive, got %d", s.TickRate)
	}
	return s, nil
}

// TickInterval is the fixed simulation step.
func (s Server) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}
