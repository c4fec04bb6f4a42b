package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/RowanDark/veil/internal/protocol"
	"github.com/RowanDark/veil/internal/service"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func TestTracingInterceptorContinuesClientTrace(t *testing.T) {
	recorder, tp := newRecorder(t)
	interceptor := TracingInterceptor(tp)

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("traceparent", traceparent))
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodEncode)}

	var inner trace.SpanContext
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		inner = trace.SpanContextFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, FullMethod(MethodEncode), span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", span.Parent().SpanID().String())
	assert.Equal(t, span.SpanContext().SpanID(), inner.SpanID())

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, ServiceName, attrs["rpc.service"])
	assert.Equal(t, MethodEncode, attrs["rpc.method"])
	assert.Equal(t, "OK", attrs["rpc.grpc.status_code"])
}

func TestTracingInterceptorRecordsErrors(t *testing.T) {
	recorder, tp := newRecorder(t)
	interceptor := TracingInterceptor(tp)
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodGetProtocol)}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "protocol not found")
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "protocol not found", spans[0].Status().Description)
	assert.False(t, spans[0].Parent().IsValid())
}

func TestClientPropagatesTraceContext(t *testing.T) {
	recorder, tp := newRecorder(t)

	svc, err := service.New(service.Options{Store: protocol.NewMemoryStore(), TracerProvider: tp})
	require.NoError(t, err)
	srv, err := NewServer(svc)
	require.NoError(t, err)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(TracingInterceptor(tp), AuthInterceptor(testToken, nil)))
	RegisterCipherServer(gs, srv)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	client, closeFn, err := Dial("passthrough:///bufnet", testToken,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	ctx, root := tp.Tracer("test").Start(context.Background(), "cli")
	_, err = client.Encode(ctx, service.EncodeRequest{Text: "HELLO"})
	require.NoError(t, err)
	root.End()

	traceID := root.SpanContext().TraceID()
	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		assert.Equal(t, traceID, span.SpanContext().TraceID(), span.Name())
		names[span.Name()] = true
	}
	assert.True(t, names[FullMethod(MethodEncode)])
	assert.True(t, names["veil.Encode"])
}

func TestSplitMethod(t *testing.T) {
	svcName, method := splitMethod("/veil.v1.Cipher/Encode")
	assert.Equal(t, "veil.v1.Cipher", svcName)
	assert.Equal(t, "Encode", method)

	svcName, method = splitMethod("bogus")
	assert.Equal(t, "bogus", svcName)
	assert.Empty(t, method)
}
