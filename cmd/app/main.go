package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal"
	"github.com/starford/meetbook/internal/auth"
	pkgconfig "github.com/starford/meetbook/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func seedDirectory(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fixture := cmd.String("fixture")
	if fixture == "" {
		fixture = cfg.Directory.Fixture
	}
	if fixture == "" {
		return fmt.Errorf("no fixture given and directory.fixture is not set")
	}

	sum, err := internal.Seed(ctx, fixture, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Fprintf(os.Stdout, "seeded %d users, %d contacts, %d leads\n", sum.Users, sum.Contacts, sum.Leads)
	return nil
}

func issueToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	uid, err := primitive.ObjectIDFromHex(cmd.String("user"))
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}
	tok, err := auth.Issue(cfg.Auth.Secret, auth.Identity{UserID: uid, Role: cmd.String("role")}, cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, tok)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "meetbook",
		Usage:  "CRM meetings service with a REST API, MCP tools and a command-line client",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the meeting tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "seed",
				Usage:  "Load a users/contacts/leads fixture into the store",
				Action: seedDirectory,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fixture", Usage: "Fixture path (defaults to directory.fixture)"},
				},
			},
			{
				Name:   "token",
				Usage:  "Issue a signed bearer token",
				Action: issueToken,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "User id (24 hex chars)", Required: true},
					&cli.StringFlag{Name: "role", Usage: "Role claim", Value: "user"},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
				},
			},
			meetingCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
