// Package taskdef fetches a deployed task definition and extracts the
// primary container's declared environment: plain entries and secret
// references, in declaration order.
//
// Only the first container definition is consulted. Multi-container task
// definitions are not merged; the remaining containers are ignored.
package taskdef

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/smithy-go"

	"github.com/kubekattle/ecsenv/internal/envtable"
)

// ErrUnavailable marks transport or auth failures fetching a definition.
var ErrUnavailable = errors.New("definition service is unavailable")

// NotFoundError reports a definition reference that no longer resolves,
// e.g. deregistered between discovery and fetch.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task definition %q not found", e.Ref)
}

// API is the slice of the ECS client the resolver needs.
type API interface {
	DescribeTaskDefinition(ctx context.Context, in *ecs.DescribeTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error)
}

// Resolver fetches task definitions.
type Resolver struct {
	api API
}

// New returns a Resolver backed by api.
func New(api API) *Resolver {
	return &Resolver{api: api}
}

// Resolve fetches ref and returns the primary container's plain environment
// entries and secret references in declaration order.
func (r *Resolver) Resolve(ctx context.Context, ref string) ([]envtable.Plain, []envtable.SecretRef, error) {
	out, err := r.api.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: aws.String(ref),
	})
	if err != nil {
		// A deregistered definition surfaces as a ClientException, not a
		// distinct not-found type.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ClientException" {
			return nil, nil, &NotFoundError{Ref: ref}
		}
		return nil, nil, fmt.Errorf("%w: describe %q: %v", ErrUnavailable, ref, err)
	}
	if out.TaskDefinition == nil || len(out.TaskDefinition.ContainerDefinitions) == 0 {
		return nil, nil, fmt.Errorf("task definition %q has no container definitions", ref)
	}
	primary := out.TaskDefinition.ContainerDefinitions[0]
	plain := make([]envtable.Plain, 0, len(primary.Environment))
	for _, kv := range primary.Environment {
		name := aws.ToString(kv.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("task definition %q declares an environment entry without a name", ref)
		}
		plain = append(plain, envtable.Plain{Name: name, Value: aws.ToString(kv.Value)})
	}
	refs := make([]envtable.SecretRef, 0, len(primary.Secrets))
	for _, s := range primary.Secrets {
		name := aws.ToString(s.Name)
		locator := aws.ToString(s.ValueFrom)
		if name == "" || locator == "" {
			return nil, nil, fmt.Errorf("task definition %q declares a secret without name or valueFrom", ref)
		}
		refs = append(refs, envtable.SecretRef{Name: name, ValueFrom: locator})
	}
	return plain, refs, nil
}
