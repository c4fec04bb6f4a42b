package api

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/veil/internal/logging"
	"github.com/RowanDark/veil/internal/service"
)

// Server adapts a service.Service to CipherServer.
type Server struct {
	svc *service.Service
}

var _ CipherServer = (*Server)(nil)

// NewServer wraps svc.
func NewServer(svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("api server requires a service")
	}
	return &Server{svc: svc}, nil
}

// NewGRPCServer returns a grpc.Server with the Cipher service registered,
// tracing through the global OpenTelemetry provider, and token authentication.
func NewGRPCServer(svc *service.Service, token string, audit *logging.AuditLogger, opts ...grpc.ServerOption) (*grpc.Server, error) {
	if token == "" {
		return nil, errors.New("api server requires an auth token")
	}
	srv, err := NewServer(svc)
	if err != nil {
		return nil, err
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(TracingInterceptor(nil), AuthInterceptor(token, audit)))
	gs := grpc.NewServer(opts...)
	RegisterCipherServer(gs, srv)
	return gs, nil
}

func (s *Server) DeriveMapping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, fieldProtocolID)
	if err != nil {
		return nil, statusFromError(err)
	}
	table, err := s.svc.DeriveMapping(ctx, id)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{
		fieldProtocolID: id,
		fieldMapping:    mappingValue(table),
	})
}

func (s *Server) Encode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.EncodeRequest
	var err error
	if in.ProtocolID, err = stringField(req, fieldProtocolID); err != nil {
		return nil, statusFromError(err)
	}
	if in.Text, err = stringField(req, fieldText); err != nil {
		return nil, statusFromError(err)
	}
	if in.NoiseLevel, err = intField(req, fieldNoiseLevel); err != nil {
		return nil, statusFromError(err)
	}
	if in.StripWhitespace, err = boolField(req, fieldStripWhitespace); err != nil {
		return nil, statusFromError(err)
	}
	res, err := s.svc.Encode(ctx, in)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{
		fieldProtocolID:      res.ProtocolID,
		fieldText:            res.Text,
		fieldNoiseLevel:      res.NoiseLevel,
		fieldStripWhitespace: res.StripWhitespace,
		fieldCreated:         res.ProtocolCreated,
	})
}

func (s *Server) Decode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.DecodeRequest
	var err error
	if in.ProtocolID, err = stringField(req, fieldProtocolID); err != nil {
		return nil, statusFromError(err)
	}
	if in.Text, err = stringField(req, fieldText); err != nil {
		return nil, statusFromError(err)
	}
	if in.NoiseLevel, err = intField(req, fieldNoiseLevel); err != nil {
		return nil, statusFromError(err)
	}
	res, err := s.svc.Decode(ctx, in)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{
		fieldProtocolID: res.ProtocolID,
		fieldText:       res.Text,
		fieldNoiseLevel: res.NoiseLevel,
		fieldCreated:    res.ProtocolCreated,
	})
}

func (s *Server) CreateProtocol(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.svc.CreateProtocol(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{fieldProtocol: protocolValue(p)})
}

func (s *Server) SyncProtocol(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, fieldProtocolID)
	if err != nil {
		return nil, statusFromError(err)
	}
	p, created, err := s.svc.SyncProtocol(ctx, id)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{
		fieldProtocol: protocolValue(p),
		fieldCreated:  created,
	})
}

func (s *Server) GetProtocol(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, fieldProtocolID)
	if err != nil {
		return nil, statusFromError(err)
	}
	p, err := s.svc.GetProtocol(ctx, id)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{fieldProtocol: protocolValue(p)})
}

func (s *Server) ListProtocols(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.svc.ListProtocols(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	items := make([]any, 0, len(list))
	for _, p := range list {
		items = append(items, protocolValue(p))
	}
	return newStruct(map[string]any{fieldProtocols: items})
}

func (s *Server) DeleteProtocol(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, fieldProtocolID)
	if err != nil {
		return nil, statusFromError(err)
	}
	if err := s.svc.DeleteProtocol(ctx, id); err != nil {
		return nil, statusFromError(err)
	}
	return &structpb.Struct{}, nil
}

func (s *Server) Assess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, fieldProtocolID)
	if err != nil {
		return nil, statusFromError(err)
	}
	strip, err := boolField(req, fieldStripWhitespace)
	if err != nil {
		return nil, statusFromError(err)
	}
	noise, err := intField(req, fieldNoiseLevel)
	if err != nil {
		return nil, statusFromError(err)
	}
	a, err := s.svc.Assess(ctx, id, strip, noise)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newStruct(map[string]any{
		fieldScore:         a.Score,
		fieldRating:        string(a.Rating),
		fieldCrackEstimate: a.CrackEstimate,
	})
}
