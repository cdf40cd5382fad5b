package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/notify"
)

var notifyHwd = &NotifyRunner{}

type NotifyRunner struct{}

func (r *NotifyRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Send a test message through a configured notifier",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Notifier ID defined in the config file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "content",
				Aliases: []string{"m"},
				Usage:   "Message body",
				Value:   "crawlwatch test notification",
			},
		},
		Action: r.run,
	}
}

func (r *NotifyRunner) run(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.String("id"))
	if id == "" {
		return errors.New("--id is required")
	}
	content := strings.TrimSpace(cmd.String("content"))
	if content == "" {
		return errors.New("--content cannot be empty")
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	nCfg, ok := cfg.Notifiers[id]
	if !ok {
		return fmt.Errorf("notifier %q was not found in the configured notifiers", id)
	}

	n, err := notify.New(id, nCfg)
	if err != nil {
		return fmt.Errorf("create %s notifier: %w", nCfg.Type, err)
	}
	ev := notify.Event{
		Kind:    notify.KindRunFinished,
		Domain:  "test",
		Message: content,
		Time:    time.Now(),
	}
	if err = n.Notify(ctx, ev); err != nil {
		return fmt.Errorf("send via %s: %w", id, err)
	}

	fmt.Printf("Sent test message via %s notifier %s\n", n.Type(), n.ID())
	return nil
}
