// Command hashpw prompts for a password without echo and prints its bcrypt
// hash, for seeding users by hand. When stdin is not a terminal the first
// line of stdin is hashed instead.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kodasoftware/example-api/internal/server/auth"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func main() {
	cost := flag.Int("cost", auth.DefaultCost, "bcrypt cost")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, os.Stderr, *cost); err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
}

func run(in *os.File, out, prompt io.Writer, cost int) error {
	password, err := readInput(in, prompt)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := auth.NewBcryptHasher(cost).Hash(password)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, hash)
	return err
}

func readInput(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	first, err := promptPassword(fd, prompt, "Password: ")
	if err != nil {
		return "", err
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
