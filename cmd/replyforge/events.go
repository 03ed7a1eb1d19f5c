package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	rfnats "github.com/Strob0t/ReplyForge/internal/adapter/nats"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
)

type eventLine struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

func newEventsCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "events [subject...]",
		Short: "Print stored and new events as JSON lines until interrupted",
		Long:  "Print events from the stream, oldest first, then follow. With no subjects every ReplyForge subject is printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			subjects, err := eventSubjects(args)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.NATS.URL == "" {
				return errors.New("nats is disabled (empty nats.url)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			q, err := rfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
			if err != nil {
				return fmt.Errorf("nats: %w", err)
			}
			defer func() { _ = q.Close() }()

			handler := printEvents(cmd.OutOrStdout())
			for _, s := range subjects {
				cancel, err := q.Subscribe(ctx, s, handler)
				if err != nil {
					return err
				}
				defer cancel()
			}

			<-ctx.Done()
			return nil
		},
	}
}

// eventSubjects validates requested subjects; none means all.
func eventSubjects(args []string) ([]string, error) {
	known := messagequeue.Subjects()
	if len(args) == 0 {
		return known, nil
	}
	for _, s := range args {
		if !slices.Contains(known, s) {
			return nil, fmt.Errorf("unknown subject %q (known: %v)", s, known)
		}
	}
	return args, nil
}

// printEvents writes one JSON line per message. Consumers run concurrently,
// so writes are serialized.
func printEvents(w io.Writer) messagequeue.Handler {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(_ context.Context, subject string, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(eventLine{Subject: subject, Data: data})
	}
}
