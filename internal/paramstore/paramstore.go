// Package paramstore resolves secret references to concrete values through
// the parameter store, decrypting as needed. Missing parameters are not
// errors; the store simply returns fewer results than asked for and the
// caller treats the absent locators as unresolved.
package paramstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/kubekattle/ecsenv/internal/envtable"
)

// ErrUnavailable marks transport or auth failures talking to the store. It
// is never raised merely because some locators are missing.
var ErrUnavailable = errors.New("parameter store is unavailable")

// batchLimit is the store's hard cap on names per GetParameters call.
const batchLimit = 10

// API is the slice of the SSM client the resolver needs.
type API interface {
	GetParameters(ctx context.Context, in *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Resolver batches secret lookups against the parameter store.
type Resolver struct {
	api API
}

// New returns a Resolver backed by api.
func New(api API) *Resolver {
	return &Resolver{api: api}
}

// ResolveBatch resolves the distinct locators across refs, deduplicated with
// first-occurrence order preserved, and returns one value per locator the
// store actually returned. An empty refs slice returns nil without touching
// the store.
func (r *Resolver) ResolveBatch(ctx context.Context, refs []envtable.SecretRef) ([]envtable.Resolved, error) {
	locators := dedupLocators(refs)
	if len(locators) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(locators))
	for start := 0; start < len(locators); start += batchLimit {
		end := min(start+batchLimit, len(locators))
		out, err := r.api.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          locators[start:end],
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: get parameters: %v", ErrUnavailable, err)
		}
		for _, p := range out.Parameters {
			// Locators may be bare names or ARNs; the store answers with
			// both, so index both to map results back to requests.
			values[aws.ToString(p.Name)] = aws.ToString(p.Value)
			if arn := aws.ToString(p.ARN); arn != "" {
				values[arn] = aws.ToString(p.Value)
			}
		}
	}
	resolved := make([]envtable.Resolved, 0, len(values))
	for _, locator := range locators {
		if value, ok := values[locator]; ok {
			resolved = append(resolved, envtable.Resolved{Locator: locator, Value: value})
		}
	}
	return resolved, nil
}

func dedupLocators(refs []envtable.SecretRef) []string {
	seen := make(map[string]struct{}, len(refs))
	var out []string
	for _, ref := range refs {
		if _, ok := seen[ref.ValueFrom]; ok {
			continue
		}
		seen[ref.ValueFrom] = struct{}{}
		out = append(out, ref.ValueFrom)
	}
	return out
}
