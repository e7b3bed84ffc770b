// Command client talks to an example-api server. The session cookies are
// kept in a local sqlite file so that a login survives between invocations.
//
//	client [flags] register <email> <name>
//	client [flags] login <email>
//	client [flags] me | whoami | refresh | logout
//	client [flags] account [create <name> | delete]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kodasoftware/example-api/internal/client/api"
	"github.com/kodasoftware/example-api/internal/client/config"
	"github.com/kodasoftware/example-api/internal/client/session"
	"golang.org/x/term"
)

var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

type apiClient interface {
	Register(ctx context.Context, email, password, name string) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.Token, error)
	Refresh(ctx context.Context) (*api.Token, error)
	Me(ctx context.Context) (*api.User, error)
	WhoAmI(ctx context.Context) (map[string]any, error)
	CreateAccount(ctx context.Context, name string) (*api.Account, error)
	Account(ctx context.Context) (*api.Account, error)
	DeleteAccount(ctx context.Context) error
	Logout(ctx context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	db, err := session.Open(ctx, cfg.SessionPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	c, err := api.New(cfg.ServerURL, cfg.GRPCAddr, session.NewSQLiteStore(db), cfg.Timeout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer c.Close()

	if err := run(ctx, c, positional(os.Args[1:]), os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "client:", err)
		if errors.Is(err, api.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "client: please log in again")
		}
		os.Exit(1)
	}
}

// positional drops the configuration flags and their values from args.
func positional(args []string) []string {
	withValue := map[string]bool{"-a": true, "-g": true, "-f": true, "-t": true, "-c": true, "-config": true}
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if withValue[arg] && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}

var errUsage = errors.New("usage: client register <email> <name> | login <email> | me | whoami | refresh | logout | account [create <name> | delete]")

func run(ctx context.Context, c apiClient, args []string, in *os.File, out, prompt io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "register":
		if len(rest) != 2 {
			return errUsage
		}
		password, err := readInput(in, prompt, true)
		if err != nil {
			return err
		}
		u, err := c.Register(ctx, rest[0], password, rest[1])
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "login":
		if len(rest) != 1 {
			return errUsage
		}
		password, err := readInput(in, prompt, false)
		if err != nil {
			return err
		}
		t, err := c.Login(ctx, rest[0], password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "logged in, access token valid until %s\n", t.Expiry.Local().Format("2006-01-02 15:04:05"))
		return err

	case "refresh":
		t, err := c.Refresh(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "refreshed, access token valid until %s\n", t.Expiry.Local().Format("2006-01-02 15:04:05"))
		return err

	case "me":
		u, err := c.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "whoami":
		id, err := c.WhoAmI(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, id)

	case "logout":
		return c.Logout(ctx)

	case "account":
		return runAccount(ctx, c, rest, out)
	}

	return errUsage
}

func runAccount(ctx context.Context, c apiClient, args []string, out io.Writer) error {
	switch {
	case len(args) == 0:
		a, err := c.Account(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, a)
	case args[0] == "create" && len(args) == 2:
		a, err := c.CreateAccount(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(out, a)
	case args[0] == "delete" && len(args) == 1:
		return c.DeleteAccount(ctx)
	}
	return errUsage
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a password from the terminal without echo, or the first
// line of in when it is not a terminal. confirm asks for it twice.
func readInput(in *os.File, prompt io.Writer, confirm bool) (string, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	first, err := promptPassword(fd, prompt, "Password: ")
	if err != nil || !confirm {
		return first, err
	}
	second, err := promptPassword(fd, prompt, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func promptPassword(fd int, w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprint(w, label); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
