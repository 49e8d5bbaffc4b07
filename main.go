package main

import (
	"log/slog"
	"os"

	"github.com/dtnitsch/lilypads/internal/convert"
	"github.com/dtnitsch/lilypads/internal/serve"
	"github.com/dtnitsch/lilypads/internal/user"
	"github.com/dtnitsch/lilypads/models"
	"github.com/urfave/cli/v2"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newApp() *cli.App {
	return &cli.App{
		Name:    "lilypads",
		Usage:   "build and serve geolocated newspaper wordcloud datasets",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file",
				Value:   models.DefaultConfigFile,
				EnvVars: []string{"LILYPADS_CONFIG"},
			},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
			&cli.BoolFlag{Name: "verbose", Usage: "log debug messages"},
		},
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "convert a CSV corpus into a dataset artifact",
				ArgsUsage: "CSV METADATA OUTPUT",
				Flags:     convert.Flags,
				Action:    convert.ConvertAction,
			},
			{
				Name:   "serve",
				Usage:  "serve datasets to logged-in users",
				Flags:  serve.Flags,
				Action: serve.ServeAction,
			},
			{
				Name:  "user",
				Usage: "manage user accounts",
				Flags: []cli.Flag{user.DatabaseFlag},
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "create an account",
						ArgsUsage: "NAME",
						Flags: []cli.Flag{
							user.PasswordFlag(),
							&cli.StringFlag{Name: "roles", Usage: "comma-separated roles"},
							&cli.StringFlag{Name: "expires", Usage: "expiry date (YYYY-MM-DD)"},
						},
						Action: user.AddAction,
					},
					{
						Name:      "passwd",
						Usage:     "set the password of an account",
						ArgsUsage: "NAME",
						Flags:     []cli.Flag{user.PasswordFlag()},
						Action:    user.PasswdAction,
					},
					{
						Name:      "roles",
						Usage:     "replace the roles of an account",
						ArgsUsage: "NAME ROLE[,ROLE...]",
						Action:    user.RolesAction,
					},
					{
						Name:      "expire",
						Usage:     "set the expiry date of an account",
						ArgsUsage: "NAME YYYY-MM-DD|never",
						Action:    user.ExpireAction,
					},
					{
						Name:   "list",
						Usage:  "list accounts",
						Action: user.ListAction,
					},
					{
						Name:      "remove",
						Usage:     "delete an account and its sessions",
						ArgsUsage: "NAME",
						Action:    user.RemoveAction,
					},
				},
			},
		},
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	// .env must be loaded before flags read their LILYPADS_* variables.
	if err := models.LoadEnv(); err != nil {
		logger.Error("failed to load environment", "error", err)
		os.Exit(1)
	}

	if err := newApp().Run(os.Args); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
