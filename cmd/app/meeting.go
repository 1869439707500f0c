package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/meetbook/internal"
	pkgconfig "github.com/starford/meetbook/pkg/config"
	"github.com/starford/meetbook/pkg/meetingclient"
)

func meetingCommand() *cli.Command {
	return &cli.Command{
		Name:  "meeting",
		Usage: "Talk to a running meetbook server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "API base URL (defaults to localhost on the configured port)",
				Sources: cli.EnvVars("MEETBOOK_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token",
				Sources: cli.EnvVars("MEETBOOK_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List meetings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "create-by", Usage: "Creator id (admins only)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					list, err := c.List(ctx, cmd.String("create-by"))
					if err != nil {
						return err
					}
					return printJSON(list)
				},
			},
			{
				Name:      "view",
				Usage:     "Show one meeting",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := oneArg(cmd)
					if err != nil {
						return err
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					m, err := c.Get(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(m)
				},
			},
			{
				Name:      "ics",
				Usage:     "Export one meeting as iCalendar",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := oneArg(cmd)
					if err != nil {
						return err
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					data, err := c.Calendar(ctx, id)
					if err != nil {
						return err
					}
					if out := cmd.String("output"); out != "" {
						return os.WriteFile(out, data, 0o644)
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
			{
				Name:  "add",
				Usage: "Create a meeting",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "agenda", Required: true},
					&cli.StringFlag{Name: "related", Usage: "Contact or Lead", Value: "Contact"},
					&cli.StringFlag{Name: "date-time", Usage: "e.g. 2026-11-02T09:30", Required: true},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "notes"},
					&cli.StringSliceFlag{Name: "attendee", Usage: "Contact id (repeatable)"},
					&cli.StringSliceFlag{Name: "lead", Usage: "Lead id (repeatable)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					m, err := c.Create(ctx, meetingclient.CreateRequest{
						Agenda:       cmd.String("agenda"),
						Related:      cmd.String("related"),
						DateTime:     cmd.String("date-time"),
						Location:     cmd.String("location"),
						Notes:        cmd.String("notes"),
						Attendes:     nonNil(cmd.StringSlice("attendee")),
						AttendesLead: nonNil(cmd.StringSlice("lead")),
					})
					if err != nil {
						return describe(err)
					}
					return printJSON(m)
				},
			},
			{
				Name:      "delete",
				Usage:     "Soft delete one meeting",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := oneArg(cmd)
					if err != nil {
						return err
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					if err := c.Delete(ctx, id); err != nil {
						return err
					}
					fmt.Fprintln(os.Stdout, "deleted", id)
					return nil
				},
			},
			{
				Name:      "delete-many",
				Usage:     "Soft delete several meetings",
				ArgsUsage: "<id> [id...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ids := cmd.Args().Slice()
					if len(ids) == 0 {
						return errors.New("at least one meeting id is required")
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					n, err := c.DeleteMany(ctx, ids)
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stdout, "deleted %d meeting(s)\n", n)
					return nil
				},
			},
		},
	}
}

// newClient resolves the server URL from --server or, failing that, from the
// HTTP port of the config file when one exists.
func newClient(cmd *cli.Command) (*meetingclient.Client, error) {
	server := cmd.String("server")
	if server == "" {
		cfg := internal.NewDefaultConfig()
		if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		server = fmt.Sprintf("http://localhost:%d/api", cfg.App.HTTP.Port)
	}
	return meetingclient.NewClient(server, meetingclient.WithToken(cmd.String("token"))), nil
}

func oneArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.New("exactly one meeting id is required")
	}
	return cmd.Args().First(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// describe appends per-field validation messages to err.
func describe(err error) error {
	var apiErr *meetingclient.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Errors) == 0 {
		return err
	}
	return fmt.Errorf("%w: %v", err, apiErr.Errors)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
