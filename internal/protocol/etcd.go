package protocol

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultEtcdPrefix namespaces protocol keys.
const DefaultEtcdPrefix = "/veil"

// EtcdOptions configures the etcd connection.
type EtcdOptions struct {
	Endpoints   []string
	Prefix      string
	TLS         *tls.Config
	DialTimeout time.Duration
}

// EtcdStore keeps each protocol as a JSON value at <prefix>/protocols/<id>.
type EtcdStore struct {
	kv     clientv3.KV
	client *clientv3.Client
	prefix string
}

// NewEtcdStore connects to etcd and verifies the cluster answers reads.
func NewEtcdStore(opts EtcdOptions) (*EtcdStore, error) {
	if len(opts.Endpoints) == 0 {
		return nil, errors.New("etcd endpoints cannot be empty")
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
		TLS:         opts.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if _, err := cli.Get(ctx, "health-check"); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	store := NewEtcdStoreFromKV(cli, opts.Prefix)
	store.client = cli
	return store, nil
}

// NewEtcdStoreFromKV wraps an existing KV, such as a *clientv3.Client or a
// namespaced view of one.
func NewEtcdStoreFromKV(kv clientv3.KV, prefix string) *EtcdStore {
	if prefix == "" {
		prefix = DefaultEtcdPrefix
	}
	return &EtcdStore{kv: kv, prefix: strings.TrimSuffix(prefix, "/")}
}

func (s *EtcdStore) dir() string {
	return s.prefix + "/protocols/"
}

func (s *EtcdStore) key(id string) string {
	return s.dir() + id
}

func (s *EtcdStore) Get(ctx context.Context, id string) (Protocol, error) {
	if IsLegacy(id) {
		return Legacy(), nil
	}
	resp, err := s.kv.Get(ctx, s.key(id))
	if err != nil {
		return Protocol{}, fmt.Errorf("failed to read protocol %s: %w", id, err)
	}
	if len(resp.Kvs) == 0 {
		return Protocol{}, ErrNotFound
	}
	return decodeEtcdValue(id, resp.Kvs[0].Value)
}

func (s *EtcdStore) Put(ctx context.Context, p Protocol) error {
	if err := checkWritable(p.ID); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal protocol %s: %w", p.ID, err)
	}
	if _, err := s.kv.Put(ctx, s.key(p.ID), string(data)); err != nil {
		return fmt.Errorf("failed to store protocol %s: %w", p.ID, err)
	}
	return nil
}

func (s *EtcdStore) Delete(ctx context.Context, id string) error {
	if err := checkWritable(id); err != nil {
		return err
	}
	resp, err := s.kv.Delete(ctx, s.key(id))
	if err != nil {
		return fmt.Errorf("failed to delete protocol %s: %w", id, err)
	}
	if resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EtcdStore) List(ctx context.Context) ([]Protocol, error) {
	resp, err := s.kv.Get(ctx, s.dir(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}
	custom := make([]Protocol, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id := strings.TrimPrefix(string(kv.Key), s.dir())
		p, err := decodeEtcdValue(id, kv.Value)
		if err != nil {
			return nil, err
		}
		custom = append(custom, p)
	}
	return withLegacy(custom), nil
}

// Close closes the etcd client when the store created it.
func (s *EtcdStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func decodeEtcdValue(id string, value []byte) (Protocol, error) {
	var p Protocol
	if err := json.Unmarshal(value, &p); err != nil {
		return Protocol{}, fmt.Errorf("failed to parse protocol %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	p.Hydrate()
	return p, nil
}
