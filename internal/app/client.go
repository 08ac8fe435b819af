package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-resttemplate/internal/config"
	"github.com/samvad-hq/samvad-resttemplate/internal/logger"
	"github.com/samvad-hq/samvad-resttemplate/pkg/httpclient"
	"github.com/samvad-hq/samvad-resttemplate/pkg/publishers"
	"github.com/samvad-hq/samvad-resttemplate/pkg/registry"
	"github.com/samvad-hq/samvad-resttemplate/pkg/resolver"
	"github.com/samvad-hq/samvad-resttemplate/pkg/resttemplate"
)

// Client owns a configured dispatcher together with the transport and
// publisher resources it holds open.
type Client struct {
	RT        *resttemplate.Client
	Resolver  *resolver.Resolver
	transport *httpclient.RestyClient
	fanout    *publishers.Fanout
	log       logger.Logger
}

// NewClient builds the registry opener, selection policy, resolver, transport
// and dispatcher described by cfg.
func NewClient(ctx context.Context, cfg *config.Config, log logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opener, err := registry.NewOpener(registryOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("build registry opener: %w", err)
	}

	policy, err := resolver.PolicyFromName(cfg.SelectionPolicy, nil)
	if err != nil {
		return nil, fmt.Errorf("build selection policy: %w", err)
	}

	res := resolver.New(opener, resolver.WithPolicy(policy), resolver.WithLogger(log))
	transport := httpclient.NewRestyClient(cfg.HTTPTimeout)

	opts := []resttemplate.Option{resttemplate.WithLogger(log)}

	fanout, err := loadFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if fanout.Size() > 0 {
		opts = append(opts, resttemplate.WithObserver(&publisherObserver{
			source: cfg.AppName,
			fanout: fanout,
			log:    log,
		}))
	}

	log.InfoObj("resttemplate client ready", "client_meta", map[string]any{
		"registry_type":    cfg.RegistryType,
		"selection_policy": cfg.SelectionPolicy,
		"http_timeout":     cfg.HTTPTimeout.String(),
		"publishers_count": fanout.Size(),
	})

	return &Client{
		RT:        resttemplate.New(res, transport, opts...),
		Resolver:  res,
		transport: transport,
		fanout:    fanout,
		log:       log,
	}, nil
}

// Close releases idle transport connections and publisher clients.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return c.fanout.Close()
}

func registryOptions(cfg *config.Config) registry.Options {
	opts := registry.Options{
		Type:    cfg.RegistryType,
		Addr:    cfg.RegistryAddr,
		Prefix:  cfg.RegistryPrefix,
		Token:   cfg.RegistryToken,
		Timeout: cfg.HTTPTimeout,
	}
	switch cfg.RegistryType {
	case registry.TypeBBolt:
		opts.Path = cfg.BBoltPath
	case registry.TypeFile:
		opts.Path = cfg.RegistryFile
	}
	return opts
}

// loadFanout builds the optional dispatch-event publishers. An unset
// publishers_file yields an empty fanout.
func loadFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// publisherObserver forwards dispatch events to the publisher fanout.
type publisherObserver struct {
	source string
	fanout *publishers.Fanout
	log    logger.Logger
}

func (o *publisherObserver) ObserveDispatch(ctx context.Context, evt resttemplate.DispatchEvent) {
	delivered, err := o.fanout.Publish(context.WithoutCancel(ctx), publishers.NewEvent(o.source, evt))
	if err != nil {
		o.log.WarnObj("dispatch event publish failed", "publish_meta", map[string]any{
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

// ErrRegistrationUnsupported is returned when the configured registry backend
// is read-only.
var ErrRegistrationUnsupported = errors.New("registry type does not support registration")

// RegisterInstance writes inst into the configured registry with the
// configured TTL. Only the bbolt and redis backends accept writes.
func RegisterInstance(ctx context.Context, cfg *config.Config, inst registry.Instance) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}

	switch cfg.RegistryType {
	case registry.TypeBBolt:
		// zero selects the store's default expiry sweep interval
		store, err := registry.OpenBoltStore(cfg.BBoltPath, 0)
		if err != nil {
			return fmt.Errorf("open bbolt registry: %w", err)
		}
		defer store.Close()
		return store.Register(inst, cfg.RegistryTTL)
	case registry.TypeRedis:
		client, err := registry.NewRedisUniversalClient(cfg.RegistryAddr)
		if err != nil {
			return fmt.Errorf("connect redis registry: %w", err)
		}
		defer client.Close()
		return registry.RedisRegister(ctx, client, cfg.RegistryPrefix, inst, cfg.RegistryTTL)
	default:
		return fmt.Errorf("%w: %s", ErrRegistrationUnsupported, cfg.RegistryType)
	}
}
