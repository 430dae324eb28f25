// Package directory answers two questions about a cluster: which services
// exist in it, and which task definition a given service currently runs.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// ErrUnavailable marks transport or auth failures talking to the
// orchestrator. Callers match it with errors.Is.
var ErrUnavailable = errors.New("service directory is unavailable")

// ServiceNotFoundError reports a service that does not exist in the cluster
// at query time.
type ServiceNotFoundError struct {
	Cluster string
	Service string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service %q not found in cluster %q", e.Service, e.Cluster)
}

// API is the slice of the ECS client the directory needs.
type API interface {
	ListServices(ctx context.Context, in *ecs.ListServicesInput, optFns ...func(*ecs.Options)) (*ecs.ListServicesOutput, error)
	DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

// Client queries the orchestrator for services and their deployed
// definitions.
type Client struct {
	api API
}

// New returns a Client backed by api.
func New(api API) *Client {
	return &Client{api: api}
}

// ListServices returns the names of all services in cluster, in the order
// the orchestrator lists them. An empty cluster yields an empty slice, not
// an error.
func (c *Client) ListServices(ctx context.Context, cluster string) ([]string, error) {
	var names []string
	var nextToken *string
	for {
		out, err := c.api.ListServices(ctx, &ecs.ListServicesInput{
			Cluster:   aws.String(cluster),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list services in %q: %v", ErrUnavailable, cluster, err)
		}
		for _, arn := range out.ServiceArns {
			names = append(names, serviceName(arn))
		}
		if out.NextToken == nil {
			return names, nil
		}
		nextToken = out.NextToken
	}
}

// CurrentDefinition returns the task definition reference currently deployed
// for service. A missing service is a *ServiceNotFoundError, distinct from a
// transport failure.
func (c *Client) CurrentDefinition(ctx context.Context, cluster, service string) (string, error) {
	out, err := c.api.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		var notFound *ecstypes.ClusterNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: cluster %q does not exist", ErrUnavailable, cluster)
		}
		return "", fmt.Errorf("%w: describe service %q: %v", ErrUnavailable, service, err)
	}
	for _, failure := range out.Failures {
		reason := aws.ToString(failure.Reason)
		if reason == "MISSING" {
			return "", &ServiceNotFoundError{Cluster: cluster, Service: service}
		}
		// Any other failure reason (throttled, inactive, ...) is not a
		// missing service and must not be reported as one.
		return "", fmt.Errorf("%w: describe service %q failed: %s", ErrUnavailable, service, reason)
	}
	for _, svc := range out.Services {
		ref := strings.TrimSpace(aws.ToString(svc.TaskDefinition))
		if ref != "" {
			return ref, nil
		}
	}
	return "", &ServiceNotFoundError{Cluster: cluster, Service: service}
}

// serviceName strips the ARN prefix; DescribeServices and human output both
// want the bare name.
func serviceName(arn string) string {
	if idx := strings.LastIndex(arn, "/"); idx >= 0 {
		return arn[idx+1:]
	}
	return arn
}
