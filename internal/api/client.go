package api

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/veil/internal/cipher"
	"github.com/RowanDark/veil/internal/protocol"
	"github.com/RowanDark/veil/internal/service"
)

// Client calls a remote veil.v1.Cipher service. Its methods mirror
// service.Service so callers can switch between local and remote use.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

// Dial connects to addr without transport security. The returned close
// function releases the connection.
func Dial(addr, token string, opts ...grpc.DialOption) (*Client, func() error, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return NewClient(conn, token), conn.Close, nil
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	ctx = injectTraceContext(ctx)
	ctx = metadata.AppendToOutgoingContext(ctx, authorizationHeader, "Bearer "+c.token)
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out); err != nil {
		return nil, errorFromStatus(err)
	}
	return out, nil
}

func (c *Client) DeriveMapping(ctx context.Context, id string) (cipher.Table, error) {
	out, err := c.invoke(ctx, MethodDeriveMapping, map[string]any{fieldProtocolID: id})
	if err != nil {
		return nil, err
	}
	return mappingFromStruct(out.GetFields()[fieldMapping].GetStructValue())
}

func (c *Client) Encode(ctx context.Context, req service.EncodeRequest) (service.EncodeResult, error) {
	fields := map[string]any{fieldProtocolID: req.ProtocolID, fieldText: req.Text}
	if req.NoiseLevel != nil {
		fields[fieldNoiseLevel] = *req.NoiseLevel
	}
	if req.StripWhitespace != nil {
		fields[fieldStripWhitespace] = *req.StripWhitespace
	}
	out, err := c.invoke(ctx, MethodEncode, fields)
	if err != nil {
		return service.EncodeResult{}, err
	}
	f := out.GetFields()
	return service.EncodeResult{
		ProtocolID:      f[fieldProtocolID].GetStringValue(),
		Text:            f[fieldText].GetStringValue(),
		NoiseLevel:      int(f[fieldNoiseLevel].GetNumberValue()),
		StripWhitespace: f[fieldStripWhitespace].GetBoolValue(),
		ProtocolCreated: f[fieldCreated].GetBoolValue(),
	}, nil
}

func (c *Client) Decode(ctx context.Context, req service.DecodeRequest) (service.DecodeResult, error) {
	fields := map[string]any{fieldProtocolID: req.ProtocolID, fieldText: req.Text}
	if req.NoiseLevel != nil {
		fields[fieldNoiseLevel] = *req.NoiseLevel
	}
	out, err := c.invoke(ctx, MethodDecode, fields)
	if err != nil {
		return service.DecodeResult{}, err
	}
	f := out.GetFields()
	return service.DecodeResult{
		ProtocolID:      f[fieldProtocolID].GetStringValue(),
		Text:            f[fieldText].GetStringValue(),
		NoiseLevel:      int(f[fieldNoiseLevel].GetNumberValue()),
		ProtocolCreated: f[fieldCreated].GetBoolValue(),
	}, nil
}

func (c *Client) CreateProtocol(ctx context.Context) (protocol.Protocol, error) {
	out, err := c.invoke(ctx, MethodCreateProtocol, nil)
	if err != nil {
		return protocol.Protocol{}, err
	}
	return protocolFromStruct(out.GetFields()[fieldProtocol].GetStructValue())
}

func (c *Client) SyncProtocol(ctx context.Context, rawID string) (protocol.Protocol, bool, error) {
	out, err := c.invoke(ctx, MethodSyncProtocol, map[string]any{fieldProtocolID: rawID})
	if err != nil {
		return protocol.Protocol{}, false, err
	}
	p, err := protocolFromStruct(out.GetFields()[fieldProtocol].GetStructValue())
	if err != nil {
		return protocol.Protocol{}, false, err
	}
	return p, out.GetFields()[fieldCreated].GetBoolValue(), nil
}

func (c *Client) GetProtocol(ctx context.Context, id string) (protocol.Protocol, error) {
	out, err := c.invoke(ctx, MethodGetProtocol, map[string]any{fieldProtocolID: id})
	if err != nil {
		return protocol.Protocol{}, err
	}
	return protocolFromStruct(out.GetFields()[fieldProtocol].GetStructValue())
}

func (c *Client) ListProtocols(ctx context.Context) ([]protocol.Protocol, error) {
	out, err := c.invoke(ctx, MethodListProtocols, nil)
	if err != nil {
		return nil, err
	}
	values := out.GetFields()[fieldProtocols].GetListValue().GetValues()
	list := make([]protocol.Protocol, 0, len(values))
	for _, v := range values {
		s := v.GetStructValue()
		if s == nil {
			return nil, errors.New("malformed protocol list")
		}
		p, err := protocolFromStruct(s)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

func (c *Client) DeleteProtocol(ctx context.Context, id string) error {
	_, err := c.invoke(ctx, MethodDeleteProtocol, map[string]any{fieldProtocolID: id})
	return err
}

func (c *Client) Assess(ctx context.Context, id string, stripWhitespace *bool, noiseLevel *int) (protocol.Assessment, error) {
	fields := map[string]any{fieldProtocolID: id}
	if stripWhitespace != nil {
		fields[fieldStripWhitespace] = *stripWhitespace
	}
	if noiseLevel != nil {
		fields[fieldNoiseLevel] = *noiseLevel
	}
	out, err := c.invoke(ctx, MethodAssess, fields)
	if err != nil {
		return protocol.Assessment{}, err
	}
	f := out.GetFields()
	return protocol.Assessment{
		Score:         int(f[fieldScore].GetNumberValue()),
		Rating:        protocol.Rating(f[fieldRating].GetStringValue()),
		CrackEstimate: f[fieldCrackEstimate].GetStringValue(),
	}, nil
}
