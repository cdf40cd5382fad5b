package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/consts"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

func main() {
	cmd := &cli.Command{
		Name:  "crawlwatch",
		Usage: "Scheduled site crawls with snapshot comparison reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   consts.DefaultConfigPath(),
			},
		},
		Commands: []*cli.Command{
			serveHwd.cmd(),
			scheduleHwd.cmd(),
			crawlHwd.cmd(),
			compareHwd.cmd(),
			notifyHwd.cmd(),
			onboardHwd.cmd(),
			configHwd.cmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logs.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}
