package api

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/veil/internal/logging"
)

const authorizationHeader = "authorization"

// AuthInterceptor rejects calls whose metadata lacks "authorization: Bearer
// <token>" and records every call in the audit log.
func AuthInterceptor(token string, audit *logging.AuditLogger) grpc.UnaryServerInterceptor {
	if audit == nil {
		audit = logging.Discard()
	}
	expected := []byte(token)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if reason := checkBearer(ctx, expected); reason != "" {
			_ = audit.Emit(logging.AuditEvent{
				EventType: logging.EventRPCDenied,
				Decision:  logging.DecisionDeny,
				Reason:    reason,
				Metadata:  map[string]any{"method": info.FullMethod},
			})
			return nil, status.Error(codes.Unauthenticated, reason)
		}

		resp, err := handler(ctx, req)
		event := logging.AuditEvent{
			EventType: logging.EventRPCCall,
			Decision:  logging.DecisionAllow,
			Metadata:  map[string]any{"method": info.FullMethod, "code": status.Code(err).String()},
		}
		if err != nil {
			event.Reason = err.Error()
		}
		_ = audit.Emit(event)
		return resp, err
	}
}

func checkBearer(ctx context.Context, expected []byte) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "missing metadata"
	}
	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return "missing bearer token"
	}
	header := strings.TrimSpace(values[0])
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "missing bearer token"
	}
	got := []byte(strings.TrimSpace(header[7:]))
	if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
		return "invalid auth token"
	}
	return ""
}
