package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// passwordReader masks input when in is a terminal and otherwise reads a
// plain line from sc, so scripted input keeps working.
func passwordReader(in io.Reader, out io.Writer, sc *bufio.Scanner) func(string) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func(prompt string) (string, error) {
			fmt.Fprint(out, prompt)
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return "", err
				}
				return "", io.EOF
			}
			return strings.TrimSpace(sc.Text()), nil
		}
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(out) // newline after masked input
		return strings.TrimSpace(string(bytePassword)), nil
	}
}

// ask prints prompt and returns the trimmed next line; ok is false on EOF.
func (a *app) ask(prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	if !a.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.sc.Text()), true
}

func (a *app) askID(prompt string) (int64, bool) {
	s, ok := a.ask(prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(a.out, "Invalid ID: %s\n", s)
		return 0, false
	}
	return id, true
}

// askYear accepts an empty answer as 0 (unknown year).
func (a *app) askYear(prompt string) (int, bool) {
	s, ok := a.ask(prompt)
	if !ok {
		return 0, false
	}
	if s == "" {
		return 0, true
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid year: %s\n", s)
		return 0, false
	}
	return year, true
}

func (a *app) confirm(prompt string) bool {
	s, ok := a.ask(prompt + " [y/N]: ")
	if !ok {
		return false
	}
	s = strings.ToLower(s)
	return s == "y" || s == "yes"
}
