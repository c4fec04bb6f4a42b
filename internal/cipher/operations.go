package cipher

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operation parameter keys.
const (
	ParamProtocolID      = "protocol_id"
	ParamNoiseLevel      = "noise_level"
	ParamStripWhitespace = "strip_whitespace"
)

// Names of the registered operations.
const (
	OpEncode = "veil_encode"
	OpDecode = "veil_decode"
)

// EncodeOp obfuscates text with the protocol named by the protocol_id parameter
type EncodeOp struct {
	BaseOperation
}

func (op *EncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	return []byte(Encode(string(input), TableFor(p.protocolID), p.stripWhitespace, p.noiseLevel, p.protocolID)), nil
}

// DecodeOp recovers text produced by EncodeOp with the same parameters
type DecodeOp struct {
	BaseOperation
}

func (op *DecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	return []byte(Decode(string(input), TableFor(p.protocolID), p.noiseLevel, p.protocolID)), nil
}

type opParams struct {
	protocolID      string
	noiseLevel      int
	stripWhitespace bool
}

func parseParams(params map[string]interface{}) (opParams, error) {
	p := opParams{protocolID: LegacyID}

	if raw, ok := params[ParamProtocolID]; ok && raw != nil {
		id, ok := raw.(string)
		if !ok {
			return opParams{}, fmt.Errorf("%s must be a string, got %T", ParamProtocolID, raw)
		}
		if strings.TrimSpace(id) != "" {
			p.protocolID = id
		}
	}

	if raw, ok := params[ParamNoiseLevel]; ok && raw != nil {
		level, err := toInt(raw)
		if err != nil {
			return opParams{}, fmt.Errorf("%s: %w", ParamNoiseLevel, err)
		}
		if level < 0 {
			return opParams{}, fmt.Errorf("%s must not be negative, got %d", ParamNoiseLevel, level)
		}
		p.noiseLevel = level
	}

	if raw, ok := params[ParamStripWhitespace]; ok && raw != nil {
		switch v := raw.(type) {
		case bool:
			p.stripWhitespace = v
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return opParams{}, fmt.Errorf("%s: %w", ParamStripWhitespace, err)
			}
			p.stripWhitespace = parsed
		default:
			return opParams{}, fmt.Errorf("%s must be a bool, got %T", ParamStripWhitespace, raw)
		}
	}

	return p, nil
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
}

func init() {
	encode := &EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        OpEncode,
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Substitute and noise-pad text with a protocol",
		},
	}
	decode := &DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        OpDecode,
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Strip noise and reverse-substitute text with a protocol",
		},
	}
	encode.ReverseOp = decode
	decode.ReverseOp = encode

	RegisterOperation(encode)
	RegisterOperation(decode)
}
