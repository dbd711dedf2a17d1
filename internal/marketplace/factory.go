package marketplace

import (
	"strings"

	"github.com/dealmungchi/bestdeal/config"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
	"github.com/dealmungchi/bestdeal/services/cache"
)

// adapterFactories is the lookup table of every supported source
var adapterFactories = map[string]func(cfg *config.Config) Adapter{
	"amazon": func(cfg *config.Config) Adapter {
		return NewAmazonAdapter(cfg.AmazonRegion, cfg.MaxItems)
	},
	"temu": func(cfg *config.Config) Adapter {
		return NewTemuAdapter(cfg.MaxItems)
	},
	"jumia": func(cfg *config.Config) Adapter {
		return NewJumiaAdapter(cfg.JumiaCountry, cfg.MaxItems)
	},
	"alibaba": func(cfg *config.Config) Adapter {
		return NewAlibabaAdapter(cfg.MaxItems)
	},
	"aliexpress": func(cfg *config.Config) Adapter {
		return NewAliExpressAdapter(cfg.ShipTo, cfg.MaxItems)
	},
}

// NewAdapter creates the adapter registered for source
func NewAdapter(source string, cfg *config.Config) (Adapter, error) {
	factory, ok := adapterFactories[strings.ToLower(source)]
	if !ok {
		return nil, errors.NewUnknownSource(source)
	}
	return factory(cfg), nil
}

// CreateClients creates a client for every source enabled in the configuration
func CreateClients(cfg *config.Config, delegate Delegate, cacheSvc cache.CacheService) ([]*Client, error) {
	var clients []*Client
	for _, source := range cfg.Sources {
		adapter, err := NewAdapter(source, cfg)
		if err != nil {
			return nil, err
		}
		clients = append(clients, NewClient(adapter, delegate, cacheSvc, cfg.SourceCooldown))
	}

	for i, c := range clients {
		logger.Debug("Client %d: %s using actor %s", i, c.Name(), c.adapter.ActorID())
	}

	return clients, nil
}

// NewManagerFromConfig builds the manager for the enabled sources
func NewManagerFromConfig(cfg *config.Config, delegate Delegate, cacheSvc cache.CacheService) (*Manager, error) {
	clients, err := CreateClients(cfg, delegate, cacheSvc)
	if err != nil {
		return nil, err
	}
	return NewManager(cfg.SearchConcurrency, clients...), nil
}
