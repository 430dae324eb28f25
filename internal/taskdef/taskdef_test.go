package taskdef

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"

	"github.com/kubekattle/ecsenv/internal/envtable"
)

type fakeAPI struct {
	out *ecs.DescribeTaskDefinitionOutput
	err error
}

func (f *fakeAPI) DescribeTaskDefinition(ctx context.Context, in *ecs.DescribeTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func TestResolveExtractsPrimaryContainer(t *testing.T) {
	api := &fakeAPI{out: &ecs.DescribeTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{
			ContainerDefinitions: []ecstypes.ContainerDefinition{
				{
					Environment: []ecstypes.KeyValuePair{
						{Name: aws.String("RAILS_ENV"), Value: aws.String("production")},
						{Name: aws.String("PORT"), Value: aws.String("3000")},
					},
					Secrets: []ecstypes.Secret{
						{Name: aws.String("DB_PASSWORD"), ValueFrom: aws.String("/prod/db/password")},
					},
				},
				{
					// Sidecar: must be ignored.
					Environment: []ecstypes.KeyValuePair{
						{Name: aws.String("SIDECAR"), Value: aws.String("1")},
					},
				},
			},
		},
	}}
	plain, refs, err := New(api).Resolve(context.Background(), "web:42")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wantPlain := []envtable.Plain{
		{Name: "RAILS_ENV", Value: "production"},
		{Name: "PORT", Value: "3000"},
	}
	if !reflect.DeepEqual(plain, wantPlain) {
		t.Fatalf("plain=%v, want %v", plain, wantPlain)
	}
	wantRefs := []envtable.SecretRef{
		{Name: "DB_PASSWORD", ValueFrom: "/prod/db/password"},
	}
	if !reflect.DeepEqual(refs, wantRefs) {
		t.Fatalf("refs=%v, want %v", refs, wantRefs)
	}
}

func TestResolveDeregisteredDefinition(t *testing.T) {
	api := &fakeAPI{err: &smithy.GenericAPIError{
		Code:    "ClientException",
		Message: "Unable to describe task definition.",
	}}
	_, _, err := New(api).Resolve(context.Background(), "web:41")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Ref != "web:41" {
		t.Fatalf("ref=%q, want web:41", notFound.Ref)
	}
}

func TestResolveTransportFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("dial tcp: timeout")}
	_, _, err := New(api).Resolve(context.Background(), "web:42")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolveRejectsEmptyDefinition(t *testing.T) {
	api := &fakeAPI{out: &ecs.DescribeTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{},
	}}
	_, _, err := New(api).Resolve(context.Background(), "web:42")
	if err == nil {
		t.Fatalf("expected error for definition without containers")
	}
}

func TestResolveRejectsNamelessEntries(t *testing.T) {
	api := &fakeAPI{out: &ecs.DescribeTaskDefinitionOutput{
		TaskDefinition: &ecstypes.TaskDefinition{
			ContainerDefinitions: []ecstypes.ContainerDefinition{
				{
					Secrets: []ecstypes.Secret{
						{Name: aws.String("DB_PASSWORD")},
					},
				},
			},
		},
	}}
	_, _, err := New(api).Resolve(context.Background(), "web:42")
	if err == nil {
		t.Fatalf("expected error for secret without valueFrom")
	}
}
