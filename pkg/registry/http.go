package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-resttemplate/pkg/httpclient"
)

const instancesPath = "/v1/instances"

type httpOpener struct {
	baseURL string
	timeout time.Duration
}

// NewHTTP returns an Opener for a discoverer exposing GET <baseURL>/v1/instances.
func NewHTTP(baseURL string, timeout time.Duration) Opener {
	return &httpOpener{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (o *httpOpener) Open(context.Context) (Session, error) {
	return &httpSession{
		baseURL: o.baseURL,
		client:  httpclient.NewRestyClient(o.timeout),
	}, nil
}

type httpSession struct {
	baseURL string
	client  *httpclient.RestyClient
}

// instancesResponse is the JSON shape of GET /v1/instances.
type instancesResponse struct {
	Instances []instanceInfo `json:"instances"`
}

type instanceInfo struct {
	InstanceID  string `json:"instance_id"`
	ServiceType string `json:"service_type"`
	Ipv4        string `json:"ipv4"`
	Port        int    `json:"port"`
}

func (s *httpSession) ListInstances(ctx context.Context) ([]Instance, error) {
	resp, err := s.client.Get(ctx, s.baseURL+instancesPath, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("fetch discoverer instances: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		// discoverer answers 404 when nothing is registered
		return nil, nil
	default:
		return nil, fmt.Errorf("discoverer returned status %d", resp.StatusCode())
	}

	var raw instancesResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("decode discoverer instances: %w", err)
	}
	if raw.Instances == nil {
		return nil, fmt.Errorf("discoverer response missing instances field")
	}

	out := make([]Instance, 0, len(raw.Instances))
	for _, r := range raw.Instances {
		out = append(out, Instance{
			ID:      r.InstanceID,
			Service: r.ServiceType,
			Address: r.Ipv4,
			Port:    r.Port,
		})
	}
	sortInstances(out)
	return out, nil
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
