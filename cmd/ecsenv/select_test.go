// File: cmd/ecsenv/select_test.go
// Brief: Tests for the interactive service picker.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSelectServiceByNumber(t *testing.T) {
	in := strings.NewReader("2\n")
	out := &bytes.Buffer{}
	got, err := selectService(context.Background(), in, out, []string{"web", "worker", "cron"}, true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "worker" {
		t.Fatalf("selected %q, want worker", got)
	}
	if !strings.Contains(out.String(), "1) web") {
		t.Fatalf("candidate list missing from prompt output: %q", out.String())
	}
}

func TestSelectServiceByName(t *testing.T) {
	in := strings.NewReader("cron\n")
	out := &bytes.Buffer{}
	got, err := selectService(context.Background(), in, out, []string{"web", "worker", "cron"}, true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "cron" {
		t.Fatalf("selected %q, want cron", got)
	}
}

func TestSelectServiceRepromptsOnInvalidInput(t *testing.T) {
	in := strings.NewReader("9\nnope\n1\n")
	out := &bytes.Buffer{}
	got, err := selectService(context.Background(), in, out, []string{"web", "worker"}, true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "web" {
		t.Fatalf("selected %q, want web", got)
	}
}

func TestSelectServiceSingleCandidateSkipsPrompt(t *testing.T) {
	out := &bytes.Buffer{}
	got, err := selectService(context.Background(), strings.NewReader(""), out, []string{"web"}, false)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "web" {
		t.Fatalf("selected %q, want web", got)
	}
}

func TestSelectServiceNonInteractiveFails(t *testing.T) {
	out := &bytes.Buffer{}
	_, err := selectService(context.Background(), strings.NewReader("1\n"), out, []string{"web", "worker"}, false)
	var usage *usageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected usageError, got %v", err)
	}
}

func TestSelectServiceClosedInputFails(t *testing.T) {
	out := &bytes.Buffer{}
	_, err := selectService(context.Background(), strings.NewReader(""), out, []string{"web", "worker"}, true)
	if err == nil {
		t.Fatalf("expected error on closed input")
	}
}

func TestSelectServiceCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pr.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &bytes.Buffer{}
	errCh := make(chan error, 1)
	go func() {
		_, err := selectService(ctx, pr, out, []string{"web", "worker"}, true)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	_ = pw.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("selection did not unblock on cancel")
	}
}
