package service

import (
	"fmt"

	"github.com/RowanDark/veil/internal/config"
	"github.com/RowanDark/veil/internal/protocol"
)

// OpenStore builds the protocol store selected by cfg. The returned close
// function releases any connection the store holds.
func OpenStore(cfg config.StoreConfig) (protocol.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendMemory:
		return protocol.NewMemoryStore(), noop, nil
	case config.BackendFile:
		store, err := protocol.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.BackendRedis:
		store, err := protocol.NewRedisStore(protocol.RedisOptions{URL: cfg.RedisURL, Prefix: cfg.RedisPrefix})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendEtcd:
		store, err := protocol.NewEtcdStore(protocol.EtcdOptions{Endpoints: cfg.EtcdEndpoints, Prefix: cfg.EtcdPrefix})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
