// Package service is the request/response facade the CLI and the gRPC API
// share. It resolves protocols through a Store, runs the cipher engine, and
// records audit events, spans and counters. The engine itself stays pure.
package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/RowanDark/veil/internal/cipher"
	"github.com/RowanDark/veil/internal/config"
	"github.com/RowanDark/veil/internal/logging"
	"github.com/RowanDark/veil/internal/protocol"
	"github.com/RowanDark/veil/internal/redact"
)

const instrumentationName = "github.com/RowanDark/veil/internal/service"

// ErrInvalidNoiseLevel is returned for noise levels outside 0..config.MaxNoiseLevel.
var ErrInvalidNoiseLevel = fmt.Errorf("noise level must be between 0 and %d", config.MaxNoiseLevel)

// Options configures a Service. Only Store is required.
type Options struct {
	Store          protocol.Store
	Audit          *logging.AuditLogger
	Defaults       config.DefaultsConfig
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service is safe for concurrent use.
type Service struct {
	store    protocol.Store
	audit    *logging.AuditLogger
	defaults config.DefaultsConfig
	tracer   trace.Tracer

	operations metric.Int64Counter
	characters metric.Int64Counter
}

// New creates a Service. Unset providers fall back to the global OpenTelemetry
// providers and an unset audit logger discards events.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("service requires a protocol store")
	}
	if opts.Defaults.ProtocolID == "" {
		opts.Defaults.ProtocolID = cipher.LegacyID
	}
	if err := checkNoiseLevel(opts.Defaults.NoiseLevel); err != nil {
		return nil, err
	}
	if opts.Audit == nil {
		opts.Audit = logging.Discard()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	operations, err := meter.Int64Counter("veil.operations",
		metric.WithDescription("Encode and decode calls handled."))
	if err != nil {
		return nil, fmt.Errorf("create operations counter: %w", err)
	}
	characters, err := meter.Int64Counter("veil.characters",
		metric.WithDescription("Characters emitted by encode and decode."),
		metric.WithUnit("{character}"))
	if err != nil {
		return nil, fmt.Errorf("create characters counter: %w", err)
	}

	return &Service{
		store:      opts.Store,
		audit:      opts.Audit,
		defaults:   opts.Defaults,
		tracer:     opts.TracerProvider.Tracer(instrumentationName),
		operations: operations,
		characters: characters,
	}, nil
}

// EncodeRequest asks for text to be obfuscated. Nil options take the
// configured defaults; an empty ProtocolID takes the default protocol.
type EncodeRequest struct {
	ProtocolID      string
	Text            string
	NoiseLevel      *int
	StripWhitespace *bool
}

// EncodeResult carries the obfuscated text and the options actually applied.
type EncodeResult struct {
	ProtocolID      string
	Text            string
	NoiseLevel      int
	StripWhitespace bool
	ProtocolCreated bool
}

// DecodeRequest asks for obfuscated text to be recovered.
type DecodeRequest struct {
	ProtocolID string
	Text       string
	NoiseLevel *int
}

// DecodeResult carries the recovered text and the options actually applied.
type DecodeResult struct {
	ProtocolID      string
	Text            string
	NoiseLevel      int
	ProtocolCreated bool
}

// DeriveMapping returns the substitution table for id without touching the
// store.
func (s *Service) DeriveMapping(ctx context.Context, id string) (cipher.Table, error) {
	_, span := s.tracer.Start(ctx, "veil.DeriveMapping",
		trace.WithAttributes(attribute.String("veil.protocol", redact.Fingerprint(id))))
	defer span.End()
	return cipher.TableFor(id), nil
}

// Encode resolves the protocol, storing it on first use, and obfuscates the
// request text.
func (s *Service) Encode(ctx context.Context, req EncodeRequest) (res EncodeResult, err error) {
	ctx, span := s.tracer.Start(ctx, "veil.Encode")
	defer func() { endSpan(span, err) }()

	level, err := s.noiseLevel(req.NoiseLevel)
	if err != nil {
		return EncodeResult{}, err
	}
	strip := s.defaults.StripWhitespace
	if req.StripWhitespace != nil {
		strip = *req.StripWhitespace
	}
	p, created, err := s.resolve(ctx, req.ProtocolID)
	if err != nil {
		return EncodeResult{}, err
	}
	span.SetAttributes(
		attribute.String("veil.protocol", redact.Fingerprint(p.ID)),
		attribute.Int("veil.noise_level", level),
		attribute.Bool("veil.strip_whitespace", strip),
	)

	out := cipher.Encode(req.Text, p.Mapping, strip, level, p.ID)
	s.record(ctx, "encode", out)
	s.emit(logging.AuditEvent{
		EventType: logging.EventTextEncoded,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"protocol_id":      p.ID,
			"noise_level":      level,
			"strip_whitespace": strip,
			"input":            req.Text,
			"output":           out,
		},
	})

	return EncodeResult{
		ProtocolID:      p.ID,
		Text:            out,
		NoiseLevel:      level,
		StripWhitespace: strip,
		ProtocolCreated: created,
	}, nil
}

// Decode resolves the protocol, storing it on first use, and recovers the
// request text. Decoding never fails on malformed input; it returns whatever
// the schedule recovers.
func (s *Service) Decode(ctx context.Context, req DecodeRequest) (res DecodeResult, err error) {
	ctx, span := s.tracer.Start(ctx, "veil.Decode")
	defer func() { endSpan(span, err) }()

	level, err := s.noiseLevel(req.NoiseLevel)
	if err != nil {
		return DecodeResult{}, err
	}
	p, created, err := s.resolve(ctx, req.ProtocolID)
	if err != nil {
		return DecodeResult{}, err
	}
	span.SetAttributes(
		attribute.String("veil.protocol", redact.Fingerprint(p.ID)),
		attribute.Int("veil.noise_level", level),
	)

	out := cipher.Decode(req.Text, p.Mapping, level, p.ID)
	s.record(ctx, "decode", out)
	s.emit(logging.AuditEvent{
		EventType: logging.EventTextDecoded,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"protocol_id": p.ID,
			"noise_level": level,
			"input":       req.Text,
			"output":      out,
		},
	})

	return DecodeResult{
		ProtocolID:      p.ID,
		Text:            out,
		NoiseLevel:      level,
		ProtocolCreated: created,
	}, nil
}

// CreateProtocol generates a protocol with a random ID and stores it.
func (s *Service) CreateProtocol(ctx context.Context) (p protocol.Protocol, err error) {
	ctx, span := s.tracer.Start(ctx, "veil.CreateProtocol")
	defer func() { endSpan(span, err) }()

	p, err = protocol.Generate()
	if err != nil {
		return protocol.Protocol{}, err
	}
	if err := s.store.Put(ctx, p); err != nil {
		return protocol.Protocol{}, fmt.Errorf("store protocol: %w", err)
	}
	s.emit(logging.AuditEvent{
		EventType: logging.EventProtocolCreated,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"protocol_id": p.ID, "source": "generated"},
	})
	return p, nil
}

// SyncProtocol normalises a user-supplied ID and returns its protocol,
// reconstructing and storing it when it is not known yet.
func (s *Service) SyncProtocol(ctx context.Context, rawID string) (p protocol.Protocol, created bool, err error) {
	ctx, span := s.tracer.Start(ctx, "veil.SyncProtocol")
	defer func() { endSpan(span, err) }()

	id, err := protocol.NormalizeID(rawID)
	if err != nil {
		return protocol.Protocol{}, false, err
	}
	p, created, err = protocol.Resolve(ctx, s.store, id)
	if err != nil {
		return protocol.Protocol{}, false, fmt.Errorf("resolve protocol: %w", err)
	}
	s.emit(logging.AuditEvent{
		EventType: logging.EventProtocolSynced,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"protocol_id": p.ID, "created": created},
	})
	return p, created, nil
}

// GetProtocol returns a stored protocol.
func (s *Service) GetProtocol(ctx context.Context, id string) (protocol.Protocol, error) {
	return s.store.Get(ctx, id)
}

// ListProtocols returns the legacy protocol followed by stored protocols.
func (s *Service) ListProtocols(ctx context.Context) ([]protocol.Protocol, error) {
	return s.store.List(ctx)
}

// DeleteProtocol removes a stored protocol. The legacy protocol cannot be
// deleted.
func (s *Service) DeleteProtocol(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "veil.DeleteProtocol")
	defer func() { endSpan(span, err) }()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(logging.AuditEvent{
		EventType: logging.EventProtocolDeleted,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"protocol_id": id},
	})
	return nil
}

// Assess rates a protocol ID with the given options. Nil options take the
// configured defaults.
func (s *Service) Assess(ctx context.Context, id string, stripWhitespace *bool, noiseLevel *int) (protocol.Assessment, error) {
	level, err := s.noiseLevel(noiseLevel)
	if err != nil {
		return protocol.Assessment{}, err
	}
	strip := s.defaults.StripWhitespace
	if stripWhitespace != nil {
		strip = *stripWhitespace
	}
	if id == "" {
		id = s.defaults.ProtocolID
	}
	return protocol.Assess(id, strip, level), nil
}

func (s *Service) resolve(ctx context.Context, rawID string) (protocol.Protocol, bool, error) {
	if rawID == "" {
		rawID = s.defaults.ProtocolID
	}
	id, err := protocol.NormalizeID(rawID)
	if err != nil {
		return protocol.Protocol{}, false, err
	}
	p, created, err := protocol.Resolve(ctx, s.store, id)
	if err != nil {
		return protocol.Protocol{}, false, fmt.Errorf("resolve protocol: %w", err)
	}
	if created {
		s.emit(logging.AuditEvent{
			EventType: logging.EventProtocolCreated,
			Decision:  logging.DecisionAllow,
			Metadata:  map[string]any{"protocol_id": p.ID, "source": "first_use"},
		})
	}
	return p, created, nil
}

func (s *Service) noiseLevel(requested *int) (int, error) {
	level := s.defaults.NoiseLevel
	if requested != nil {
		level = *requested
	}
	if err := checkNoiseLevel(level); err != nil {
		return 0, err
	}
	return level, nil
}

func checkNoiseLevel(level int) error {
	if level < 0 || level > config.MaxNoiseLevel {
		return fmt.Errorf("%w, got %d", ErrInvalidNoiseLevel, level)
	}
	return nil
}

func (s *Service) record(ctx context.Context, op, out string) {
	attrs := metric.WithAttributes(attribute.String("veil.operation", op))
	s.operations.Add(ctx, 1, attrs)
	s.characters.Add(ctx, int64(utf8.RuneCountInString(out)), attrs)
}

// emit logs an audit event. Audit failures never fail the request.
func (s *Service) emit(event logging.AuditEvent) {
	_ = s.audit.Emit(event)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
