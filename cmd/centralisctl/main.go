// Command centralisctl is the operator CLI: role assignments and token minting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"centralis.org/internal/auth"
	"centralis.org/internal/config"
	"centralis.org/internal/rbac"
	"centralis.org/internal/store"
)

const usage = `usage:
  centralisctl roles list
  centralisctl roles policy
  centralisctl roles bootstrap <email> <role>
  centralisctl roles assign -actor <admin-email> <email> <role>
  centralisctl roles revoke -actor <admin-email> <email>
  centralisctl token [-ttl 12h] <email>`

var errUsage = errors.New(usage)

type app struct {
	stdout io.Writer
	cfg    config.Config
	open   func(ctx context.Context) (store.Opened, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a := &app{
		stdout: os.Stdout,
		cfg:    cfg,
		open: func(ctx context.Context) (store.Opened, error) {
			if cfg.MemoryBackend() {
				return store.Opened{}, errors.New("CENTRALIS_DB_URL is required for role commands")
			}
			return store.Open(ctx, cfg.DBURL, false)
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "roles":
		return a.roles(ctx, args[1:])
	case "token":
		return a.token(args[1:])
	default:
		return errUsage
	}
}

func (a *app) policy() (*rbac.Policy, error) {
	if a.cfg.RolePolicy == "" {
		return rbac.DefaultPolicy(), nil
	}
	return rbac.LoadPolicyFile(a.cfg.RolePolicy)
}

func (a *app) roles(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	policy, err := a.policy()
	if err != nil {
		return err
	}
	if args[0] == "policy" {
		return a.printPolicy(policy)
	}

	backend, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	dir := rbac.NewDirectory(backend.Backend, policy)

	fs := flag.NewFlagSet("roles "+args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	actor := fs.String("actor", "", "identity performing the change; must hold the administer capability")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w\n\n%s", err, usage)
	}
	rest := fs.Args()

	switch args[0] {
	case "list":
		list, err := dir.ListAll(ctx)
		if err != nil {
			return err
		}
		return a.printAssignments(list)
	case "bootstrap":
		if len(rest) != 2 {
			return errUsage
		}
		assigned, err := dir.Bootstrap(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s is now %s\n", assigned.Email, assigned.Role)
		return nil
	case "assign":
		if len(rest) != 2 || strings.TrimSpace(*actor) == "" {
			return errUsage
		}
		assigned, err := dir.Assign(ctx, *actor, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s is now %s\n", assigned.Email, assigned.Role)
		return nil
	case "revoke":
		if len(rest) != 1 || strings.TrimSpace(*actor) == "" {
			return errUsage
		}
		if err := dir.Revoke(ctx, *actor, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s reverted to %s\n", rbac.NormalizeIdentity(rest[0]), policy.Default)
		return nil
	default:
		return errUsage
	}
}

func (a *app) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ttl := fs.Duration("ttl", a.cfg.TokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n\n%s", err, usage)
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	auth.Configure(a.cfg.AuthSecret)
	token, err := auth.GenerateToken(fs.Arg(0), *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, token)
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func styled(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

func (a *app) printAssignments(list []rbac.Assignment) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(styled).
		Headers("EMAIL", "ROLE", "ASSIGNED BY", "UPDATED")
	for _, as := range list {
		t.Row(as.Email, as.Role, as.AssignedBy, as.UpdatedAt.UTC().Format(time.RFC3339))
	}
	_, err := fmt.Fprintln(a.stdout, t.Render())
	return err
}

func (a *app) printPolicy(p *rbac.Policy) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(styled).
		Headers("ROLE", "CAPABILITIES")
	for _, role := range p.RoleNames() {
		caps := p.Capabilities(role)
		names := make([]string, 0, len(caps))
		for _, c := range caps {
			names = append(names, string(c))
		}
		name := string(role)
		if role == p.Default {
			name += " (default)"
		}
		t.Row(name, strings.Join(names, ", "))
	}
	_, err := fmt.Fprintln(a.stdout, t.Render())
	return err
}
