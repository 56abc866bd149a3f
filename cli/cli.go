// Package cli parses the command line and resolves upstream secrets
// from the environment.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const EnvGitHubKey = "GITHUB_KEY"
const EnvGitHubName = "GITHUB_NAME"
const EnvFitBitKey = "FITBIT_KEY"
const EnvLastFMKey = "LASTFM_KEY"
const EnvGoodreadsID = "GOODREADS_ID"
const EnvGoodreadsKey = "GOODREADS_KEY"

const DefaultConfigPath = "./config.yml"

// Command can be any of:
//
//	CommandServe
type Command any

type CommandServe struct {
	ConfigPath string
	Secrets    Secrets
}

// Secrets are the upstream credentials, read from the environment.
type Secrets struct {
	GitHubKey    string
	GitHubName   string
	FitBitKey    string
	LastFMKey    string
	GoodreadsID  string
	GoodreadsKey string
}

func Parse(w io.Writer, args []string) (cmd Command) {
	fm := fmt.Sprintf

	executableName := "vitals"
	if len(args) > 0 {
		executableName = filepath.Base(args[0])
	}

	flags := flag.NewFlagSet("vitals", flag.ContinueOnError)
	flags.SetOutput(w)
	flags.Usage = func() {
		writeLines(w,
			fm("usage: %s <command> [flags]", executableName),
			"",
			"commands available:",
			" serve - starts the GraphQL endpoint server",
		)
	}

	parseFlags := func() (ok bool) {
		err := flags.Parse(args[2:])
		// flags will automatically call .Usage()
		return err == nil
	}

	if len(args) < 2 {
		flags.Usage()
		return nil
	}

	switch args[1] {
	case "serve":
		c := CommandServe{}
		c.Secrets = Secrets{
			GitHubKey:    os.Getenv(EnvGitHubKey),
			GitHubName:   os.Getenv(EnvGitHubName),
			FitBitKey:    os.Getenv(EnvFitBitKey),
			LastFMKey:    os.Getenv(EnvLastFMKey),
			GoodreadsID:  os.Getenv(EnvGoodreadsID),
			GoodreadsKey: os.Getenv(EnvGoodreadsKey),
		}

		flags.Usage = func() {
			writeLines(w,
				"",
				fm("usage: %s serve [-config <path>]", executableName),
				"",
				"flags:",
				"-config <path>: defines the configuration file path "+
					fm("(default: %s)", DefaultConfigPath),
				"",
				"environment variables:",
				fm("%s: GitHub bearer token", EnvGitHubKey),
				fm("%s: commit author name to count", EnvGitHubName),
				fm("%s: FitBit bearer token", EnvFitBitKey),
				fm("%s: Last.fm API key", EnvLastFMKey),
				fm("%s: Goodreads user ID", EnvGoodreadsID),
				fm("%s: Goodreads API key", EnvGoodreadsKey),
			)
		}

		flags.StringVar(&c.ConfigPath, "config", DefaultConfigPath, "")
		if !parseFlags() {
			return nil
		}

		if missing := c.Secrets.missing(); len(missing) > 0 {
			for _, m := range missing {
				writeLines(w, m+" isn't set.")
			}
			flags.Usage()
			return nil
		}

		cmd = c

	case "help":
		flags.Usage()
		return

	default:
		flags.Usage()
		return nil
	}
	return cmd
}

func (s Secrets) missing() (names []string) {
	for _, v := range []struct {
		name  string
		value string
	}{
		{EnvGitHubKey, s.GitHubKey},
		{EnvGitHubName, s.GitHubName},
		{EnvFitBitKey, s.FitBitKey},
		{EnvLastFMKey, s.LastFMKey},
		{EnvGoodreadsID, s.GoodreadsID},
		{EnvGoodreadsKey, s.GoodreadsKey},
	} {
		if v.value == "" {
			names = append(names, v.name)
		}
	}
	return names
}

func writeLines(w io.Writer, lines ...string) {
	for i := range lines {
		_, _ = w.Write([]byte(lines[i]))
		_, _ = w.Write([]byte("\n"))
	}
}
