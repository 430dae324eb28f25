package directory

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

type fakeAPI struct {
	listPages     []*ecs.ListServicesOutput
	listErr       error
	listCalls     int
	describeOut   *ecs.DescribeServicesOutput
	describeErr   error
	describeCalls int
}

func (f *fakeAPI) ListServices(ctx context.Context, in *ecs.ListServicesInput, optFns ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := f.listPages[f.listCalls]
	f.listCalls++
	return page, nil
}

func (f *fakeAPI) DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.describeOut, nil
}

func TestListServicesPaginatesAndStripsARNs(t *testing.T) {
	api := &fakeAPI{listPages: []*ecs.ListServicesOutput{
		{
			ServiceArns: []string{"arn:aws:ecs:us-east-1:123:service/prod/web"},
			NextToken:   aws.String("page2"),
		},
		{
			ServiceArns: []string{"arn:aws:ecs:us-east-1:123:service/prod/worker"},
		},
	}}
	got, err := New(api).ListServices(context.Background(), "prod")
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	want := []string{"web", "worker"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("services=%v, want %v", got, want)
	}
	if api.listCalls != 2 {
		t.Fatalf("calls=%d, want 2", api.listCalls)
	}
}

func TestListServicesEmptyClusterIsNotAnError(t *testing.T) {
	api := &fakeAPI{listPages: []*ecs.ListServicesOutput{{}}}
	got, err := New(api).ListServices(context.Background(), "prod")
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("services=%v, want none", got)
	}
}

func TestListServicesTransportFailure(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("dial tcp: timeout")}
	_, err := New(api).ListServices(context.Background(), "prod")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCurrentDefinition(t *testing.T) {
	api := &fakeAPI{describeOut: &ecs.DescribeServicesOutput{
		Services: []ecstypes.Service{
			{TaskDefinition: aws.String("arn:aws:ecs:us-east-1:123:task-definition/web:42")},
		},
	}}
	got, err := New(api).CurrentDefinition(context.Background(), "prod", "web")
	if err != nil {
		t.Fatalf("current definition: %v", err)
	}
	if got != "arn:aws:ecs:us-east-1:123:task-definition/web:42" {
		t.Fatalf("ref=%q", got)
	}
}

func TestCurrentDefinitionMissingService(t *testing.T) {
	api := &fakeAPI{describeOut: &ecs.DescribeServicesOutput{
		Failures: []ecstypes.Failure{
			{Arn: aws.String("arn:aws:ecs:us-east-1:123:service/prod/ghost"), Reason: aws.String("MISSING")},
		},
	}}
	_, err := New(api).CurrentDefinition(context.Background(), "prod", "ghost")
	var notFound *ServiceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ServiceNotFoundError, got %v", err)
	}
	if notFound.Service != "ghost" || notFound.Cluster != "prod" {
		t.Fatalf("error=%+v", notFound)
	}
}

func TestCurrentDefinitionNonMissingFailureIsNotNotFound(t *testing.T) {
	api := &fakeAPI{describeOut: &ecs.DescribeServicesOutput{
		Failures: []ecstypes.Failure{
			{Arn: aws.String("arn:aws:ecs:us-east-1:123:service/prod/web"), Reason: aws.String("THROTTLED")},
		},
	}}
	_, err := New(api).CurrentDefinition(context.Background(), "prod", "web")
	var notFound *ServiceNotFoundError
	if errors.As(err, &notFound) {
		t.Fatalf("THROTTLED failure misreported as not-found: %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "THROTTLED") {
		t.Fatalf("failure reason missing from error: %v", err)
	}
}

func TestCurrentDefinitionClusterGone(t *testing.T) {
	api := &fakeAPI{describeErr: &ecstypes.ClusterNotFoundException{}}
	_, err := New(api).CurrentDefinition(context.Background(), "prod", "web")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
