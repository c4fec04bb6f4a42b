package protocol

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeKV implements the subset of clientv3.KV the store uses: exact and
// prefix Get, Put and single-key Delete.
type fakeKV struct {
	clientv3.KV

	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.data[key] = val
	return &clientv3.PutResponse{}, nil
}

func (f *fakeKV) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	end := string(clientv3.OpGet(key, opts...).RangeBytes())
	var keys []string
	for k := range f.data {
		if k == key || (end != "" && k >= key && k < end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	resp := &clientv3.GetResponse{Count: int64(len(keys))}
	for _, k := range keys {
		resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(f.data[k])})
	}
	return resp, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.data[key]; !ok {
		return &clientv3.DeleteResponse{}, nil
	}
	delete(f.data, key)
	return &clientv3.DeleteResponse{Deleted: 1}, nil
}

func TestEtcdStoreLayout(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewEtcdStoreFromKV(kv, "/team/")

	require.NoError(t, store.Put(ctx, Protocol{ID: "abc", Name: "Reconstructed-abc", CreatedAt: at(0)}))
	raw, ok := kv.data["/team/protocols/abc"]
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"abc","name":"Reconstructed-abc","built_in":false,"created_at":"2023-11-14T22:13:20Z"}`, raw)

	// Keys that merely share the prefix text belong to another namespace.
	kv.data["/team/protocolsX"] = "{}"
	kv.data["/other/protocols/zzz"] = "{}"
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "abc", list[1].ID)

	kv.data["/team/protocols/bad"] = "{"
	_, err = store.Get(ctx, "bad")
	assert.ErrorContains(t, err, "failed to parse protocol bad")
	_, err = store.List(ctx)
	assert.Error(t, err)

	assert.NoError(t, store.Close())
}

func TestEtcdStoreBackendErrors(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.err = errors.New("etcdserver: request timed out")
	store := NewEtcdStoreFromKV(kv, "")

	_, err := store.Get(ctx, "abc")
	assert.ErrorContains(t, err, "request timed out")
	assert.ErrorContains(t, store.Put(ctx, Reconstruct("abc")), "failed to store protocol abc")
	assert.ErrorContains(t, store.Delete(ctx, "abc"), "failed to delete protocol abc")
	_, err = store.List(ctx)
	assert.ErrorContains(t, err, "failed to list protocols")

	_, _, err = Resolve(ctx, store, "abc")
	assert.Error(t, err)
}

func TestNewEtcdStoreRequiresEndpoints(t *testing.T) {
	_, err := NewEtcdStore(EtcdOptions{})
	assert.ErrorContains(t, err, "endpoints cannot be empty")
}
