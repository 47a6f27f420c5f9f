// Package config loads the service configuration from a Java-properties file,
// the format the streaming platform's tooling already ships around. A handful
// of well-known keys configure the service itself; everything else stays in
// the flat bag, where the route resolver finds its schema.topic.* and
// output.topic.* entries.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

// Well-known property keys. bootstrap.servers and application.id deliberately
// reuse the Kafka client vocabulary so one file can drive both this service
// and its deployment tooling.
const (
	KeyTransport        = "transport"
	KeyBootstrapServers = "bootstrap.servers"
	KeyApplicationID    = "application.id"
	KeyClientID         = "client.id"
	KeyMetricsPort      = "metrics.port"
)

// DefaultTransport is used when the transport key is absent.
const DefaultTransport = "kafka"

// Config holds the parsed service settings plus the raw property bag.
type Config struct {
	// Transport selects the messaging backend: "kafka" in production,
	// "channel" for in-process development runs.
	Transport string

	// KafkaBrokers is the parsed bootstrap.servers list.
	KafkaBrokers []string

	// ConsumerGroup is the application.id, doubling as the Kafka consumer
	// group so partition assignment and committed offsets survive restarts.
	ConsumerGroup string

	// ClientID identifies this process to the brokers. Defaults to the
	// consumer group.
	ClientID string

	// MetricsPort exposes Prometheus metrics on /metrics when > 0.
	MetricsPort int

	// Properties is the full flat key/value bag, including every key this
	// package does not recognise. The route resolver reads it directly.
	Properties map[string]string
}

// Load reads and parses a properties file.
func Load(path string) (*Config, error) {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("load properties file: %w", err)
	}
	return FromMap(props.Map())
}

// FromMap builds a Config from an already-flat property map.
func FromMap(props map[string]string) (*Config, error) {
	cfg := &Config{
		Transport:     props[KeyTransport],
		ConsumerGroup: props[KeyApplicationID],
		ClientID:      props[KeyClientID],
		Properties:    props,
	}
	if cfg.Transport == "" {
		cfg.Transport = DefaultTransport
	}
	if cfg.ClientID == "" {
		cfg.ClientID = cfg.ConsumerGroup
	}

	if servers := props[KeyBootstrapServers]; servers != "" {
		for _, broker := range strings.Split(servers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if port := props[KeyMetricsPort]; port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyMetricsPort, err)
		}
		cfg.MetricsPort = parsed
	}

	return cfg, nil
}

// Validate checks that the configuration can start the selected transport.
func (c *Config) Validate() error {
	var errs []error

	if c.Transport == "kafka" {
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, fmt.Errorf("kafka: %s is required", KeyBootstrapServers))
		}
		if c.ConsumerGroup == "" {
			errs = append(errs, fmt.Errorf("kafka: %s is required", KeyApplicationID))
		}
	}

	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}

	return errors.Join(errs...)
}

// Getter methods to implement the transport.Config interface.
func (c *Config) GetTransport() string      { return c.Transport }
func (c *Config) GetKafkaBrokers() []string { return c.KafkaBrokers }
func (c *Config) GetConsumerGroup() string  { return c.ConsumerGroup }
func (c *Config) GetClientID() string       { return c.ClientID }
