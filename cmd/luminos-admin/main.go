// Package main is the entry point for the Luminos community admin CLI.
// This tool provides administrative commands for bootstrapping, staff accounts and backups.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/luminosmc/luminos-community/internal/app"
	"github.com/luminosmc/luminos-community/internal/backup"
	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
	"github.com/luminosmc/luminos-community/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]

	var err error
	switch command {
	case "version":
		fmt.Printf("Luminos Community Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "seed":
		err = runSeed(ctx, args)

	case "staff":
		err = runStaff(ctx, args)

	case "role":
		err = runRole(ctx, args)

	case "backup":
		err = runBackup(ctx, args)

	case "restore":
		err = runRestore(ctx, args)

	case "snapshots":
		err = runSnapshots(ctx, args)

	case "gen-secret":
		var secret string
		secret, err = crypto.GenerateSecret()
		if err == nil {
			fmt.Println(secret)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commandFlags returns a flag set carrying the shared --config flag.
func commandFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	path := fs.String("config", os.Getenv("LUMINOS_CONFIG"), "path to the configuration file")
	return fs, path
}

func openApp(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// Only warnings reach the terminal; command output goes to stdout.
	cfg.Logging.Level = "warn"
	cfg.Logging.Output = "stderr"
	cfg.Logging.Format = "console"
	logger := app.NewLogger(cfg.Logging)

	return app.New(ctx, cfg, logger, app.Options{AutoMigrate: true})
}

func runSeed(ctx context.Context, args []string) error {
	fs, configPath := commandFlags("seed")
	_ = fs.Parse(args)

	a, err := openApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Seeder.Seed(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d roles, %d products, %d posts\n", res.Roles, res.Products, res.Posts)
	if res.Owner != nil {
		fmt.Printf("Created root owner %q\n", res.Owner.Username)
	}
	if res.GeneratedPassword != "" {
		fmt.Printf("Generated password: %s\n", res.GeneratedPassword)
	}
	return nil
}

// runStaff creates a staff account acting as an authenticated staff member,
// so the usual permission checks apply.
func runStaff(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return fmt.Errorf("usage: luminos-admin staff create --as <user> --as-password <pass> --username <name> --password <pass> [--roles a,b]")
	}

	fs, configPath := commandFlags("staff create")
	as := fs.String("as", "", "acting staff username")
	asPassword := fs.String("as-password", "", "acting staff password")
	username := fs.String("username", "", "new staff username")
	password := fs.String("password", "", "new staff password (generated when empty)")
	roles := fs.String("roles", "", "comma separated role ids")
	_ = fs.Parse(args[1:])

	a, err := openApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	login, err := a.Session.Login(ctx, service.LoginInput{Kind: domain.KindStaff, Username: *as, Password: *asPassword})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	defer func() { _ = a.Session.Logout(ctx, login.Token) }()

	pass := *password
	if pass == "" {
		if pass, err = crypto.GeneratePassword(); err != nil {
			return err
		}
		fmt.Printf("Generated password: %s\n", pass)
	}

	p, err := a.Staff.Create(ctx, login.Principal, service.CreateStaffInput{
		Username: *username,
		Password: pass,
		Roles:    splitList(*roles),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created staff %q (%s) with roles %v\n", p.Username, p.ID, p.Roles)
	return nil
}

func runRole(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] != "list" {
		return fmt.Errorf("usage: luminos-admin role list")
	}
	fs, configPath := commandFlags("role list")
	_ = fs.Parse(args[1:])

	a, err := openApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	roles, err := a.Roles.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSYSTEM\tPERMISSIONS")
	for _, r := range roles {
		perms := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions.Slice() {
			perms = append(perms, string(p))
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", r.ID, r.Name, r.System, strings.Join(perms, ","))
	}
	return tw.Flush()
}

func openBackup(ctx context.Context, configPath string) (*app.App, *backup.Service, error) {
	a, err := openApp(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}
	svc, err := a.Backup(ctx)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return a, svc, nil
}

func runBackup(ctx context.Context, args []string) error {
	fs, configPath := commandFlags("backup")
	_ = fs.Parse(args)

	a, svc, err := openBackup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := svc.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote snapshot %s\n", name)
	return nil
}

func runRestore(ctx context.Context, args []string) error {
	fs, configPath := commandFlags("restore")
	replace := fs.Bool("replace", false, "delete records missing from the snapshot")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: luminos-admin restore [--replace] <snapshot>")
	}

	a, svc, err := openBackup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := svc.Restore(ctx, fs.Arg(0), backup.ImportOptions{Replace: *replace})
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d records, deleted %d\n", res.Written, res.Deleted)
	return nil
}

func runSnapshots(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	fs, configPath := commandFlags("snapshots " + sub)
	_ = fs.Parse(args)

	a, svc, err := openBackup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	switch sub {
	case "list":
		names, err := svc.List(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	case "delete":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: luminos-admin snapshots delete <snapshot>")
		}
		return svc.Delete(ctx, fs.Arg(0))
	default:
		return fmt.Errorf("unknown snapshots command: %s", sub)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printUsage() {
	fmt.Println(`Luminos Community Admin CLI

Usage:
  luminos-admin <command> [arguments]

Commands:
  seed        Create default roles, the root owner and sample content
  staff       Manage staff accounts (create)
  role        Inspect roles (list)
  backup      Write a snapshot of every collection
  restore     Load a snapshot into the store
  snapshots   Manage snapshots (list, delete)
  gen-secret  Print a random session signing secret
  version     Print version information
  help        Show this help message

Examples:
  luminos-admin seed --config configs/config.yaml
  luminos-admin staff create --as TheOwner --as-password secret --username Mod --roles moderator
  luminos-admin backup
  luminos-admin restore --replace snapshot-20260301-120000.json

Environment Variables:
  LUMINOS_CONFIG  Default configuration file path`)
}
