package api

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/veil/internal/cipher"
	"github.com/RowanDark/veil/internal/config"
	"github.com/RowanDark/veil/internal/logging"
	"github.com/RowanDark/veil/internal/protocol"
	"github.com/RowanDark/veil/internal/service"
)

const testToken = "s3cr3t-token"

type fixture struct {
	client *Client
	conn   *grpc.ClientConn
	audit  *bytes.Buffer
}

func startServer(t *testing.T) fixture {
	t.Helper()
	var buf bytes.Buffer
	audit, err := logging.NewAuditLogger("api", logging.WithoutStdout(), logging.WithWriter(&buf))
	require.NoError(t, err)

	svc, err := service.New(service.Options{
		Store:    protocol.NewMemoryStore(),
		Defaults: config.DefaultsConfig{ProtocolID: cipher.LegacyID},
	})
	require.NoError(t, err)

	gs, err := NewGRPCServer(svc, testToken, audit)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	client, closeFn, err := Dial("passthrough:///bufnet", testToken,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	return fixture{client: client, conn: client.cc.(*grpc.ClientConn), audit: &buf}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestNewGRPCServerRequiresToken(t *testing.T) {
	svc, err := service.New(service.Options{Store: protocol.NewMemoryStore()})
	require.NoError(t, err)
	_, err = NewGRPCServer(svc, "", nil)
	require.Error(t, err)
	_, err = NewServer(nil)
	require.Error(t, err)
}

func TestEncodeDecodeOverGRPC(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	enc, err := f.client.Encode(ctx, service.EncodeRequest{ProtocolID: "abc", Text: "Hello, World!", NoiseLevel: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, "lWYY+q c+@Ygm", enc.Text)
	assert.True(t, enc.ProtocolCreated)

	enc, err = f.client.Encode(ctx, service.EncodeRequest{ProtocolID: "abc", Text: "Hello, World!", NoiseLevel: intPtr(2), StripWhitespace: boolPtr(true)})
	require.NoError(t, err)
	assert.False(t, enc.ProtocolCreated)
	assert.Equal(t, 2, enc.NoiseLevel)
	assert.True(t, enc.StripWhitespace)

	dec, err := f.client.Decode(ctx, service.DecodeRequest{ProtocolID: "abc", Text: enc.Text, NoiseLevel: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "Hello,World!", dec.Text)

	legacy, err := f.client.Encode(ctx, service.EncodeRequest{Text: "HELLO"})
	require.NoError(t, err)
	assert.Equal(t, cipher.LegacyID, legacy.ProtocolID)
	assert.Equal(t, ":&||5", legacy.Text)
}

func TestDeriveMappingOverGRPC(t *testing.T) {
	f := startServer(t)
	table, err := f.client.DeriveMapping(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, cipher.DeriveMapping("abc"), table)

	legacy, err := f.client.DeriveMapping(context.Background(), cipher.LegacyID)
	require.NoError(t, err)
	assert.Equal(t, cipher.LegacyTable(), legacy)
}

func TestProtocolLifecycleOverGRPC(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	created, err := f.client.CreateProtocol(ctx)
	require.NoError(t, err)
	assert.Len(t, created.ID, protocol.GeneratedIDLength)
	assert.Equal(t, cipher.DeriveMapping(created.ID), created.Mapping)

	synced, fresh, err := f.client.SyncProtocol(ctx, "#shared-key")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "shared-key", synced.ID)

	list, err := f.client.ListProtocols(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, cipher.LegacyID, list[0].ID)
	assert.True(t, list[0].BuiltIn)

	got, err := f.client.GetProtocol(ctx, "shared-key")
	require.NoError(t, err)
	assert.Equal(t, "Reconstructed-shared-key", got.Name)
	assert.True(t, synced.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, f.client.DeleteProtocol(ctx, "shared-key"))
	_, err = f.client.GetProtocol(ctx, "shared-key")
	require.ErrorIs(t, err, protocol.ErrNotFound)
	require.ErrorIs(t, f.client.DeleteProtocol(ctx, cipher.LegacyID), protocol.ErrBuiltIn)
}

func TestAssessOverGRPC(t *testing.T) {
	f := startServer(t)
	a, err := f.client.Assess(context.Background(), "abcdefghijkl", boolPtr(true), intPtr(2))
	require.NoError(t, err)
	assert.Equal(t, protocol.Assessment{Score: 6, Rating: protocol.RatingSpectre, CrackEstimate: "> 100k Years"}, a)
}

func TestInvalidArgumentsOverGRPC(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	_, err := f.client.Encode(ctx, service.EncodeRequest{Text: "x", NoiseLevel: intPtr(7)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, _, err = f.client.SyncProtocol(ctx, "ab")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.invoke(ctx, MethodEncode, map[string]any{fieldText: "x", fieldNoiseLevel: 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.invoke(ctx, MethodEncode, map[string]any{fieldText: 12})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuthInterceptor(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	for name, token := range map[string]string{"wrong token": "nope", "empty token": ""} {
		t.Run(name, func(t *testing.T) {
			bad := NewClient(f.conn, token)
			_, err := bad.Encode(ctx, service.EncodeRequest{Text: "x"})
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
		})
	}

	out := new(structpb.Struct)
	err := f.conn.Invoke(ctx, FullMethod(MethodListProtocols), &structpb.Struct{}, out)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = f.client.ListProtocols(ctx)
	require.NoError(t, err)

	raw := f.audit.String()
	assert.Contains(t, raw, `"event_type":"rpc_denied"`)
	assert.Contains(t, raw, `"event_type":"rpc_call"`)
	assert.Contains(t, raw, FullMethod(MethodListProtocols))
	assert.NotContains(t, raw, testToken)
}

func TestCheckBearer(t *testing.T) {
	cases := []struct {
		name   string
		header []string
		want   string
	}{
		{name: "valid", header: []string{"Bearer " + testToken}, want: ""},
		{name: "case insensitive scheme", header: []string{"bearer " + testToken}, want: ""},
		{name: "missing scheme", header: []string{testToken}, want: "missing bearer token"},
		{name: "missing header", header: nil, want: "missing bearer token"},
		{name: "wrong token", header: []string{"Bearer other"}, want: "invalid auth token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{authorizationHeader: tc.header})
			assert.Equal(t, tc.want, checkBearer(ctx, []byte(testToken)))
		})
	}
	assert.Equal(t, "missing metadata", checkBearer(context.Background(), []byte(testToken)))
}
