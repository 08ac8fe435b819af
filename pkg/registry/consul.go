package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/consul/api"
)

type consulOpener struct {
	scheme string
	addr   string
	token  string
}

// NewConsul returns an Opener that lists services registered with a Consul agent.
// addr may be "host:port" or a full "http(s)://host:port" URL.
func NewConsul(addr, token string) Opener {
	scheme, host := splitConsulAddr(addr)
	return &consulOpener{scheme: scheme, addr: host, token: token}
}

func splitConsulAddr(addr string) (string, string) {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "://") {
		return "http", addr
	}
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return "http", addr
	}
	return u.Scheme, u.Host
}

func (o *consulOpener) Open(context.Context) (Session, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	cfg := api.DefaultConfig()
	cfg.Address = o.addr
	cfg.Scheme = o.scheme
	cfg.Token = o.token
	cfg.Transport = transport

	client, err := api.NewClient(cfg)
	if err != nil {
		transport.CloseIdleConnections()
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	return &consulSession{agent: client.Agent(), transport: transport}, nil
}

type consulSession struct {
	agent     *api.Agent
	transport *http.Transport
}

func (s *consulSession) ListInstances(ctx context.Context) ([]Instance, error) {
	q := (&api.QueryOptions{}).WithContext(ctx)
	services, err := s.agent.ServicesWithFilterOpts("", q)
	if err != nil {
		return nil, fmt.Errorf("list consul agent services: %w", err)
	}

	out := make([]Instance, 0, len(services))
	for _, svc := range services {
		if svc == nil {
			continue
		}
		out = append(out, Instance{
			ID:      svc.ID,
			Service: svc.Service,
			Address: svc.Address,
			Port:    svc.Port,
		})
	}
	sortInstances(out)
	return out, nil
}

func (s *consulSession) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}
