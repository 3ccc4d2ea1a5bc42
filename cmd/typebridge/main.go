// Command typebridge converts schemas between dialects, validates JSON
// documents against them and reports what a round trip through a dialect
// loses.
//
//	typebridge convert -from syntax -to jsonschema '{ name: string }'
//	typebridge check -from openapi -schema crd.yaml -kind Widget -data widget.json
//	typebridge roundtrip -from jsonschema -via tags -in user.schema.json
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joeshaw/envdecode"
	"github.com/mattn/go-isatty"
)

// Config holds the defaults read from the environment.
type Config struct {
	From     string `env:"TYPEBRIDGE_FROM,default=syntax"`
	To       string `env:"TYPEBRIDGE_TO,default=jsonschema"`
	NoColor  bool   `env:"NO_COLOR,default=false"`
	LogLevel string `env:"TYPEBRIDGE_LOG_LEVEL,default=warn"`
}

func loadConfig() Config {
	cfg := Config{From: "syntax", To: "jsonschema", LogLevel: "warn"}
	_ = envdecode.Decode(&cfg)
	return cfg
}

// errUsage makes run exit with status 2.
var errUsage = errors.New("usage")

type env struct {
	cfg    Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	e := &env{cfg: loadConfig(), stdin: stdin, stdout: stdout, stderr: stderr}
	color.NoColor = e.cfg.NoColor || !isTerminal(stdout)
	e.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level(e.cfg.LogLevel)}))

	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "convert":
		err = e.convertCmd(args[1:])
	case "check":
		err = e.checkCmd(args[1:])
	case "roundtrip":
		err = e.roundtripCmd(args[1:])
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		usage(stderr)
		return 2
	}
	var fail exitError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	case errors.As(err, &fail):
		return int(fail)
	}
	fmt.Fprintf(stderr, "%s %v\n", color.RedString("error:"), err)
	return 1
}

// exitError ends run with the given status after output was written.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func usage(w io.Writer) {
	fmt.Fprint(w, `typebridge: schema dialect converter

Usage:
  typebridge convert   [-from D] [-to D] [-in file | text] [-p Name=text]... [-kind K] [-type T] [-o file]
  typebridge check     [-from D] -schema file [-kind K] [-type T] -data file
  typebridge roundtrip [-from D] -via D [-in file | text] [-kind K] [-type T]

Dialects:
  source: syntax, jsonschema, openapi, go
  target: syntax, jsonschema, openapi, tags

Environment:
  TYPEBRIDGE_FROM, TYPEBRIDGE_TO   default dialects
  TYPEBRIDGE_LOG_LEVEL             debug, info, warn or error
  NO_COLOR                         disable coloured output
`)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func level(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return slog.LevelWarn
	}
	return l
}

// newFlagSet returns a flag set writing its usage to stderr.
func (e *env) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}
