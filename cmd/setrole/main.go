// Command setrole assigns a role to an existing account by email. Since
// the only login path is GitHub OAuth and new accounts start as USER, this
// is how the first ADMIN gets bootstrapped.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"fintrack/internal/models"
	"fintrack/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("setrole", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email of the account")
	role := fs.String("role", "", "Role to assign (USER or ADMIN)")
	dbPath := fs.String("db", "fintrack.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *role == "" {
		fmt.Fprintln(stdout, "Usage: setrole -email <email> -role <USER|ADMIN> [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email, role")
	}

	newRole := models.Role(*role)
	if !newRole.Valid() {
		return fmt.Errorf("invalid role %q: must be USER or ADMIN", *role)
	}

	// Allow overriding db path via env var if not explicitly set via flag
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == "fintrack.db" {
		*dbPath = path
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := db.GetUserByEmail(*email)
	if err != nil {
		return fmt.Errorf("no account with email %s (the user must sign in once first): %w", *email, err)
	}

	updated, err := db.UpdateUserRole(user.ID, newRole)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	fmt.Fprintf(stdout, "User %s is now %s\n", updated.Email, updated.Role)
	return nil
}
