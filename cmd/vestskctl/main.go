package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/urfave/cli/v2"
	"github.com/vestsk/tippebot/internal/app"
	"github.com/vestsk/tippebot/internal/config"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/infrastructure/discord"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "vestskctl",
		Usage:  "run tipping bot operations once and print the result",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "use CSV snapshots instead of Google Sheets"},
			&cli.StringFlag{Name: "grid", Usage: "tipping worksheet CSV for --dry-run"},
			&cli.StringSliceFlag{Name: "workbook", Usage: "PPR worksheet for --dry-run as title=path, repeatable"},
			&cli.StringFlag{Name: "log-level", Value: "warn"},
		},
		Commands: []*cli.Command{
			{
				Name:  "current-week",
				Usage: "print the fantasy league's current week",
				Action: func(c *cli.Context) error {
					return withServices(c, out, func(ctx context.Context, env runEnv) error {
						week, err := env.svc.ESPN.CurrentWeek(ctx)
						if err != nil {
							return err
						}
						_, err = fmt.Fprintln(out, week)
						return err
					})
				},
			},
			{
				Name:  "matchups",
				Usage: "print the matchup lines for a week",
				Flags: []cli.Flag{weekFlag()},
				Action: func(c *cli.Context) error {
					return withServices(c, out, func(ctx context.Context, env runEnv) error {
						lines, err := env.svc.Matchups.List(ctx, c.Int("week"))
						if err != nil {
							return err
						}
						for _, line := range lines {
							if _, err := fmt.Fprintln(out, line); err != nil {
								return err
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "export",
				Usage: "write the latest tipping session to the sheet",
				Flags: []cli.Flag{
					weekFlag(),
					&cli.StringFlag{Name: "channel", Usage: "channel to collect from, defaults to the tipping channel"},
				},
				Action: func(c *cli.Context) error {
					return withServices(c, out, func(ctx context.Context, env runEnv) error {
						channelID := c.String("channel")
						if channelID == "" {
							channelID = env.cfg.Discord.TippingChannelID
						}
						result, err := env.svc.Export.Export(ctx, channelID, c.Int("week"))
						if err != nil {
							return err
						}
						_, err = fmt.Fprintf(out, "week %d: %d rows from row %d (rewritten=%t)\n",
							result.Week, result.Rows, result.StartRow, result.Rewritten)
						return err
					})
				},
			},
			{
				Name:  "reconcile",
				Usage: "score a finished week and print the leaderboard",
				Flags: []cli.Flag{weekFlag()},
				Action: func(c *cli.Context) error {
					return withServices(c, out, func(ctx context.Context, env runEnv) error {
						result, err := env.svc.Reconcile.Reconcile(ctx, c.Int("week"))
						if err != nil {
							return err
						}
						for _, msg := range usecase.ReconcileMessages(result) {
							if _, err := fmt.Fprintln(out, msg); err != nil {
								return err
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "ppr",
				Usage: "refresh the PPR history and print the ranking",
				Action: func(c *cli.Context) error {
					return withServices(c, out, func(ctx context.Context, env runEnv) error {
						_, err := env.svc.PPR.Run(ctx, func(ctx context.Context, text string) error {
							return env.printer.Send(ctx, "ppr", text)
						})
						return err
					})
				},
			},
		},
	}
}

func weekFlag() cli.Flag {
	return &cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "NFL week, 0 for the current week"}
}

type runEnv struct {
	cfg     config.Config
	svc     *app.Services
	printer *printChat
}

type action func(ctx context.Context, env runEnv) error

// withServices loads configuration, builds the services and runs fn. In
// dry-run mode the edited snapshots are printed afterwards.
func withServices(c *cli.Context, out io.Writer, fn action) error {
	ctx := c.Context

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.ParseLevel(c.String("log-level")), os.Stderr)
	logging.SetDefault(logger)

	var reader chat.Client
	if cfg.Discord.Token != "" {
		session, err := discord.NewSession(cfg.Discord.Token, logger.Named("discord"))
		if err != nil {
			return err
		}
		if err := session.Open(); err != nil {
			return err
		}
		defer func() { _ = session.Close() }()
		reader = session
	}
	printer := newPrintChat(reader, out)

	var snapshots *snapshotSet
	sources := app.Sources{}
	if c.Bool("dry-run") {
		snapshots, err = loadSnapshots(cfg.TippingWorksheet, c.String("grid"), c.StringSlice("workbook"))
		if err != nil {
			return err
		}
		sources = snapshots.sources()
	}

	svc, err := app.NewServices(ctx, cfg, printer, sources, nil, logger)
	if err != nil {
		return err
	}
	if err := fn(ctx, runEnv{cfg: cfg, svc: svc, printer: printer}); err != nil {
		return err
	}
	if snapshots != nil {
		return snapshots.dump(out)
	}
	return nil
}
