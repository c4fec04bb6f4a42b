package cipher

import (
	"context"
	"fmt"
)

// OperationType defines the direction of a transformation operation
type OperationType string

const (
	OperationTypeEncode OperationType = "encode"
	OperationTypeDecode OperationType = "decode"
)

// Operation is a named text transformation that can be chained in a Pipeline
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the direction of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input text
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// OperationConfig names an operation and the parameters it runs with
type OperationConfig struct {
	Name       string                 `json:"name" yaml:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Pipeline represents a chain of operations that can be applied sequentially
type Pipeline struct {
	Operations []OperationConfig `json:"operations" yaml:"operations"`
	Reversible bool              `json:"reversible" yaml:"reversible"`

	// Registry resolves operation names. Nil means the default registry.
	Registry *Registry `json:"-" yaml:"-"`
}

func (p *Pipeline) registry() *Registry {
	if p.Registry != nil {
		return p.Registry
	}
	return defaultRegistry
}

// Execute runs the pipeline on the input text
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	var err error

	for i, opConfig := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, exists := p.registry().Get(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation at step %d: %s", i, opConfig.Name)
		}

		result, err = op.Execute(ctx, result, opConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
	}

	return result, nil
}

// Reverse creates the inverse pipeline. Steps run in the opposite order and
// each keeps its parameters, so a decode step sees the protocol and noise
// level its encode step used.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is not reversible")
	}

	reversed := &Pipeline{
		Operations: make([]OperationConfig, len(p.Operations)),
		Reversible: true,
		Registry:   p.Registry,
	}

	for i, opConfig := range p.Operations {
		op, exists := p.registry().Get(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation: %s", opConfig.Name)
		}

		reverseOp, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is not reversible", opConfig.Name)
		}

		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       reverseOp.Name(),
			Parameters: opConfig.Parameters,
		}
	}

	return reversed, nil
}

// BaseOperation provides common functionality for operations
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
