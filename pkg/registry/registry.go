package registry

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Package registry provides the service registry collaborators consulted when
// resolving logical service names.

// Supported registry backends.
const (
	TypeConsul = "consul"
	TypeRedis  = "redis"
	TypeHTTP   = "http"
	TypeBBolt  = "bbolt"
	TypeFile   = "file"
)

// Instance is one reachable endpoint registered for a named service.
type Instance struct {
	ID      string `json:"id" yaml:"id"`
	Service string `json:"service" yaml:"service"`
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
}

// HostPort renders the instance as an URL authority ("address:port").
func (i Instance) HostPort() string {
	return net.JoinHostPort(i.Address, strconv.Itoa(i.Port))
}

// Session is a short-lived registry connection. Callers must Close it.
type Session interface {
	ListInstances(ctx context.Context) ([]Instance, error)
	Close() error
}

// Opener acquires a fresh Session for a single lookup.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Session, error)

func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// Options selects and configures a registry backend.
type Options struct {
	Type    string
	Addr    string
	Path    string
	Prefix  string
	Token   string
	Timeout time.Duration
}

const defaultRedisPrefix = "instance"

// NewOpener creates the configured registry backend.
func NewOpener(opts Options) (Opener, error) {
	typ := strings.TrimSpace(strings.ToLower(opts.Type))
	addr := strings.TrimSpace(opts.Addr)
	path := strings.TrimSpace(opts.Path)

	switch typ {
	case TypeConsul:
		if addr == "" {
			return nil, fmt.Errorf("consul registry requires an address")
		}
		return NewConsul(addr, opts.Token), nil
	case TypeRedis:
		if addr == "" {
			return nil, fmt.Errorf("redis registry requires an address")
		}
		prefix := strings.TrimSpace(opts.Prefix)
		if prefix == "" {
			prefix = defaultRedisPrefix
		}
		return NewRedis(addr, prefix), nil
	case TypeHTTP:
		if addr == "" {
			return nil, fmt.Errorf("http registry requires an address")
		}
		return NewHTTP(addr, opts.Timeout), nil
	case TypeBBolt:
		if path == "" {
			return nil, fmt.Errorf("bbolt registry requires a path")
		}
		return NewBolt(path), nil
	case TypeFile:
		if path == "" {
			return nil, fmt.Errorf("file registry requires a path")
		}
		return NewFile(path), nil
	default:
		return nil, fmt.Errorf("unsupported registry type %q", opts.Type)
	}
}

// sortInstances orders instances by id so index-based selection policies see a
// stable ordering regardless of backend iteration order.
func sortInstances(instances []Instance) {
	sort.SliceStable(instances, func(i, j int) bool {
		if instances[i].ID != instances[j].ID {
			return instances[i].ID < instances[j].ID
		}
		return instances[i].HostPort() < instances[j].HostPort()
	})
}

type staticSession struct {
	instances []Instance
}

func (s staticSession) ListInstances(context.Context) ([]Instance, error) {
	out := make([]Instance, len(s.instances))
	copy(out, s.instances)
	return out, nil
}

func (staticSession) Close() error { return nil }

// NewStatic returns an Opener serving a fixed in-memory instance list.
func NewStatic(instances ...Instance) Opener {
	cp := make([]Instance, len(instances))
	copy(cp, instances)
	return OpenerFunc(func(context.Context) (Session, error) {
		return staticSession{instances: cp}, nil
	})
}
