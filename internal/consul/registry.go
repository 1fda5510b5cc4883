package consul

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"
)

// DefaultServiceName is the name the service registers under when none is configured
const DefaultServiceName = "gatehouse"

// Registration describes how this instance announces itself
type Registration struct {
	Name string
	Host string
	Port int
	Tags []string

	// CheckPath is the HTTP path Consul polls, e.g. /health
	CheckPath       string
	CheckInterval   time.Duration
	CheckTimeout    time.Duration
	DeregisterAfter time.Duration
}

// ServiceConfig contains configuration for service registration
type ServiceConfig struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Check   *HealthCheck
}

// HealthCheck defines health check configuration
type HealthCheck struct {
	HTTP            string
	Interval        string
	Timeout         string
	DeregisterAfter string
}

// ServiceRegistrar defines the interface for service registration
type ServiceRegistrar interface {
	Register(ctx context.Context, cfg *ServiceConfig) error
	Deregister(ctx context.Context, serviceID string) error
}

// NewServiceConfig turns a Registration into the agent payload. The ID is
// stable across restarts so a crashed instance is replaced rather than
// duplicated. A Registration without CheckPath gets no health check.
func NewServiceConfig(r Registration) *ServiceConfig {
	name := r.Name
	if name == "" {
		name = DefaultServiceName
	}

	cfg := &ServiceConfig{
		ID:      fmt.Sprintf("%s-%s-%d", name, r.Host, r.Port),
		Name:    name,
		Address: r.Host,
		Port:    r.Port,
		Tags:    r.Tags,
	}

	if r.CheckPath != "" {
		path := r.CheckPath
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		cfg.Check = &HealthCheck{
			HTTP:     fmt.Sprintf("http://%s%s", net.JoinHostPort(r.Host, strconv.Itoa(r.Port)), path),
			Interval: durationString(r.CheckInterval, 10*time.Second),
			Timeout:  durationString(r.CheckTimeout, 3*time.Second),
		}
		if r.DeregisterAfter > 0 {
			cfg.Check.DeregisterAfter = r.DeregisterAfter.String()
		}
	}

	return cfg
}

func durationString(d, fallback time.Duration) string {
	if d <= 0 {
		d = fallback
	}
	return d.String()
}

// Register registers a service with Consul, replacing checks left by a
// previous registration with the same ID
func (c *Client) Register(ctx context.Context, cfg *ServiceConfig) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Address: cfg.Address,
		Port:    cfg.Port,
		Tags:    cfg.Tags,
	}

	if cfg.Check != nil {
		registration.Check = &consulapi.AgentServiceCheck{
			HTTP:                           cfg.Check.HTTP,
			Interval:                       cfg.Check.Interval,
			Timeout:                        cfg.Check.Timeout,
			DeregisterCriticalServiceAfter: cfg.Check.DeregisterAfter,
		}
	}

	opts := consulapi.ServiceRegisterOpts{ReplaceExistingChecks: true}.WithContext(ctx)
	if err := c.api.Agent().ServiceRegisterOpts(registration, opts); err != nil {
		return fmt.Errorf("failed to register service %s: %w", cfg.ID, err)
	}

	return nil
}

// Deregister removes a service from Consul
func (c *Client) Deregister(ctx context.Context, serviceID string) error {
	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	if err := c.api.Agent().ServiceDeregisterOpts(serviceID, q); err != nil {
		return fmt.Errorf("failed to deregister service %s: %w", serviceID, err)
	}

	return nil
}
