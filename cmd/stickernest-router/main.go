package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/hkcm91/stickernest/pkg/log"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "stickernest-router",
		Usage:                 "Run the pipeline router and management API for one canvas",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "canvas-id",
				Usage:   "Canvas scope this router serves",
				Value:   "default",
				Sources: cli.EnvVars("CANVAS_ID"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (file://, redis://, postgres://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "widgets-path",
				Usage:   "Path to the directory containing widget manifests",
				Value:   "./widgets",
				Sources: cli.EnvVars("WIDGETS_PATH"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			daemon, err := NewDaemon(ctx, Config{
				CanvasID:    command.String("canvas-id"),
				Port:        command.Int("port"),
				DatabaseURL: command.String("database-url"),
				EventBus:    command.String("event-bus"),
				WidgetsPath: command.String("widgets-path"),
				Tracing:     command.Bool("tracing"),
			})
			if err != nil {
				return err
			}

			return daemon.Run(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
