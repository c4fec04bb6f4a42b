package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/veil/internal/cipher"
	"github.com/RowanDark/veil/internal/protocol"
	"github.com/RowanDark/veil/internal/service"
)

// Field names shared by requests and responses.
const (
	fieldProtocolID      = "protocol_id"
	fieldText            = "text"
	fieldNoiseLevel      = "noise_level"
	fieldStripWhitespace = "strip_whitespace"
	fieldCreated         = "protocol_created"
	fieldMapping         = "mapping"
	fieldProtocol        = "protocol"
	fieldProtocols       = "protocols"
	fieldScore           = "score"
	fieldRating          = "rating"
	fieldCrackEstimate   = "crack_estimate"
)

var errBadField = errors.New("invalid field")

func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errBadField, key)
	}
	return sv.StringValue, nil
}

func intField(s *structpb.Struct, key string) (*int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || nv.NumberValue != math.Trunc(nv.NumberValue) || math.Abs(nv.NumberValue) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s must be an integer", errBadField, key)
	}
	n := int(nv.NumberValue)
	return &n, nil
}

func boolField(s *structpb.Struct, key string) (*bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a boolean", errBadField, key)
	}
	b := bv.BoolValue
	return &b, nil
}

func mappingValue(table cipher.Table) map[string]any {
	out := make(map[string]any, len(table))
	for k, v := range table {
		out[string(k)] = string(v)
	}
	return out
}

func mappingFromStruct(s *structpb.Struct) (cipher.Table, error) {
	table := make(cipher.Table, len(s.GetFields()))
	for k, v := range s.GetFields() {
		key, n := utf8.DecodeRuneInString(k)
		sub, m := utf8.DecodeRuneInString(v.GetStringValue())
		if n != len(k) || m == 0 || m != len(v.GetStringValue()) {
			return nil, fmt.Errorf("%w: mapping entry %q", errBadField, k)
		}
		table[key] = sub
	}
	return table, nil
}

func protocolValue(p protocol.Protocol) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"name":       p.Name,
		"built_in":   p.BuiltIn,
		"created_at": p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func protocolFromStruct(s *structpb.Struct) (protocol.Protocol, error) {
	fields := s.GetFields()
	p := protocol.Protocol{
		ID:      fields["id"].GetStringValue(),
		Name:    fields["name"].GetStringValue(),
		BuiltIn: fields["built_in"].GetBoolValue(),
	}
	if raw := fields["created_at"].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return protocol.Protocol{}, fmt.Errorf("%w: created_at: %v", errBadField, err)
		}
		p.CreatedAt = ts
	}
	p.Hydrate()
	return p, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// statusFromError maps service and store errors onto gRPC status codes.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, protocol.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, protocol.ErrBuiltIn):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, protocol.ErrIDTooShort),
		errors.Is(err, protocol.ErrInvalidID),
		errors.Is(err, service.ErrInvalidNoiseLevel),
		errors.Is(err, errBadField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// errorFromStatus turns a gRPC status back into the matching sentinel so
// callers can use errors.Is on remote results.
func errorFromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = protocol.ErrNotFound
	case codes.FailedPrecondition:
		sentinel = protocol.ErrBuiltIn
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
