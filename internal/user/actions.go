package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/lilypads/internal/common"
	"github.com/dtnitsch/lilypads/pkg/auth"
	"github.com/dtnitsch/lilypads/pkg/db"
	"github.com/urfave/cli/v2"
)

// DatabaseFlag selects the user database for every user subcommand.
var DatabaseFlag = &cli.StringFlag{
	Name:    "database",
	Usage:   "SQLite user database",
	EnvVars: []string{"LILYPADS_DATABASE"},
}

// PasswordFlag returns the --password flag. It also reads
// LILYPADS_PASSWORD so passwords can stay out of shell history.
func PasswordFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "password",
		Usage:    "password (at least 8 characters)",
		EnvVars:  []string{"LILYPADS_PASSWORD"},
		Required: true,
	}
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(db.DateLayout)
}

func openDatabase(c *cli.Context) (*db.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	path := cfg.Database
	if c.IsSet("database") {
		path = c.String("database")
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// AddAction creates the account NAME.
func AddAction(c *cli.Context) error {
	args, err := common.Args(c, 1)
	if err != nil {
		return err
	}
	expires, err := db.ParseExpiry(c.String("expires"))
	if err != nil {
		return err
	}

	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	hash, err := auth.NewService(database).Hash(c.String("password"))
	if err != nil {
		return err
	}
	u := &db.User{
		ID:           args[0],
		PasswordHash: hash,
		Expires:      expires,
		Roles:        db.ParseRoles(c.String("roles")),
	}
	if err := database.CreateUser(u); err != nil {
		return err
	}

	fmt.Printf("Created user %s\n", u.ID)
	return nil
}

// PasswdAction sets a new password for NAME.
func PasswdAction(c *cli.Context) error {
	args, err := common.Args(c, 1)
	if err != nil {
		return err
	}
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := auth.NewService(database).SetPassword(args[0], c.String("password")); err != nil {
		return err
	}
	fmt.Printf("Password updated for %s\n", args[0])
	return nil
}

// RolesAction replaces the roles of NAME with a comma-separated list.
func RolesAction(c *cli.Context) error {
	args, err := common.Args(c, 2)
	if err != nil {
		return err
	}
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	roles := db.ParseRoles(args[1])
	if err := database.SetRoles(args[0], roles); err != nil {
		return err
	}
	fmt.Printf("Roles of %s: %s\n", args[0], strings.Join(roles, ","))
	return nil
}

// ExpireAction sets the expiry date of NAME; "never" clears it.
func ExpireAction(c *cli.Context) error {
	args, err := common.Args(c, 2)
	if err != nil {
		return err
	}
	expires, err := db.ParseExpiry(args[1])
	if err != nil {
		return err
	}
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SetExpiry(args[0], expires); err != nil {
		return err
	}
	fmt.Printf("Expiry of %s: %s\n", args[0], formatExpiry(expires))
	return nil
}

// ListAction prints every account.
func ListAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	users, err := database.ListUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Printf("%-20s %-12s %-30s\n", "User", "Expires", "Roles")
	fmt.Println(strings.Repeat("-", 64))
	for _, u := range users {
		fmt.Printf("%-20s %-12s %-30s\n", u.ID, formatExpiry(u.Expires), strings.Join(u.Roles, ","))
	}
	fmt.Printf("\nTotal: %d users\n", len(users))
	return nil
}

// RemoveAction deletes NAME and its sessions.
func RemoveAction(c *cli.Context) error {
	args, err := common.Args(c, 1)
	if err != nil {
		return err
	}
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.DeleteUser(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed user %s\n", args[0])
	return nil
}
