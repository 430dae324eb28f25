// File: cmd/ecsenv/select.go
// Brief: Interactive service picker used when --service is omitted.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// selectService prompts the operator to pick one service from the cluster's
// candidate list. A single candidate is picked without prompting. The read
// happens on a goroutine so an operator interrupt cancels the prompt.
func selectService(ctx context.Context, in io.Reader, out io.Writer, services []string, interactive bool) (string, error) {
	if len(services) == 1 {
		fmt.Fprintf(out, "Only one service in cluster, using %q\n", services[0])
		return services[0], nil
	}
	if !interactive {
		return "", &usageError{msg: "--service is required when stdin is not a terminal"}
	}
	for i, svc := range services {
		fmt.Fprintf(out, "  %2d) %s\n", i+1, svc)
	}
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "Select a service [1-%d]: ", len(services))
		line, err := readLine(ctx, reader)
		if err != nil {
			return "", err
		}
		reply := strings.TrimSpace(line)
		if reply == "" {
			continue
		}
		if n, err := strconv.Atoi(reply); err == nil {
			if n >= 1 && n <= len(services) {
				return services[n-1], nil
			}
			fmt.Fprintf(out, "No such entry %d\n", n)
			continue
		}
		// Typing a service name works too.
		for _, svc := range services {
			if svc == reply {
				return svc, nil
			}
		}
		fmt.Fprintf(out, "No service named %q in the list\n", reply)
	}
}

func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := reader.ReadString('\n')
		ch <- result{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", res.err
		}
		if res.err != nil && strings.TrimSpace(res.line) == "" {
			return "", errors.New("selection aborted: input closed")
		}
		return res.line, nil
	}
}
