// Package config reads and validates the server configuration file.
package config

import (
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const DefaultReadTimeout = 10 * time.Second
const DefaultWriteTimeout = 10 * time.Second
const DefaultFetchTimeout = 10 * time.Second
const DefaultMaxReqBodySize = 4 * 1024 * 1024
const MinReqBodySize = 256

const DefaultLastFMUser = "lowmess"
const DefaultGoodreadsShelf = "currently-reading"

type Config struct {
	Host                string
	TLS                 TLS
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	FetchTimeout        time.Duration
	MaxReqBodySizeBytes int
	Identity            Identity
	Upstreams           Upstreams
}

type TLS struct {
	CertFile string
	KeyFile  string
}

// Identity is the single fixed identity the facade reports on.
type Identity struct {
	LastFMUser     string
	GoodreadsShelf string
}

// Upstreams overrides the public upstream endpoints.
// Empty values select each client's default.
type Upstreams struct {
	GitHub    string
	FitBit    string
	LastFM    string
	Goodreads string
}

type serverConfig struct {
	Host string `yaml:"host"`
	TLS  struct {
		CertFile string `yaml:"cert-file"`
		KeyFile  string `yaml:"key-file"`
	} `yaml:"tls"`
	ReadTimeout        string `yaml:"read-timeout"`
	WriteTimeout       string `yaml:"write-timeout"`
	FetchTimeout       string `yaml:"fetch-timeout"`
	MaxRequestBodySize *int   `yaml:"max-request-body-size"`
	Identity           struct {
		LastFMUser     string `yaml:"lastfm-user"`
		GoodreadsShelf string `yaml:"goodreads-shelf"`
	} `yaml:"identity"`
	Upstreams struct {
		GitHub    string `yaml:"github"`
		FitBit    string `yaml:"fitbit"`
		LastFM    string `yaml:"lastfm"`
		Goodreads string `yaml:"goodreads"`
	} `yaml:"upstreams"`
}

// Read reads the config file at filePath within filesystem.
func Read(filesystem fs.FS, filePath string) (*Config, error) {
	f, err := filesystem.Open(filePath)
	if err != nil {
		return nil, &ErrorMissing{
			FilePath: filePath,
			Feature:  "server config",
		}
	}
	defer f.Close()

	var c serverConfig
	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(&c); err != nil {
		return nil, &ErrorIllegal{
			FilePath: filePath,
			Feature:  "syntax",
			Message:  err.Error(),
		}
	}

	if c.Host == "" {
		return nil, &ErrorMissing{
			FilePath: filePath,
			Feature:  "host",
		}
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return nil, &ErrorMissing{
			FilePath: filePath,
			Feature:  "tls.cert-file and tls.key-file",
		}
	}

	conf := &Config{
		Host: c.Host,
		TLS: TLS{
			CertFile: c.TLS.CertFile,
			KeyFile:  c.TLS.KeyFile,
		},
		MaxReqBodySizeBytes: DefaultMaxReqBodySize,
		Identity: Identity{
			LastFMUser:     c.Identity.LastFMUser,
			GoodreadsShelf: c.Identity.GoodreadsShelf,
		},
		Upstreams: Upstreams{
			GitHub:    c.Upstreams.GitHub,
			FitBit:    c.Upstreams.FitBit,
			LastFM:    c.Upstreams.LastFM,
			Goodreads: c.Upstreams.Goodreads,
		},
	}

	if conf.ReadTimeout, err = duration(
		filePath, "read-timeout", c.ReadTimeout, DefaultReadTimeout,
	); err != nil {
		return nil, err
	}
	if conf.WriteTimeout, err = duration(
		filePath, "write-timeout", c.WriteTimeout, DefaultWriteTimeout,
	); err != nil {
		return nil, err
	}
	if conf.FetchTimeout, err = duration(
		filePath, "fetch-timeout", c.FetchTimeout, DefaultFetchTimeout,
	); err != nil {
		return nil, err
	}

	if c.MaxRequestBodySize != nil {
		if *c.MaxRequestBodySize < MinReqBodySize {
			return nil, &ErrorIllegal{
				FilePath: filePath,
				Feature:  "max-request-body-size",
				Message: fmt.Sprintf(
					"maximum request body size should not be less than %d B",
					MinReqBodySize,
				),
			}
		}
		conf.MaxReqBodySizeBytes = *c.MaxRequestBodySize
	}

	if conf.Identity.LastFMUser == "" {
		conf.Identity.LastFMUser = DefaultLastFMUser
	}
	if conf.Identity.GoodreadsShelf == "" {
		conf.Identity.GoodreadsShelf = DefaultGoodreadsShelf
	}

	for _, u := range []struct {
		feature string
		value   string
	}{
		{"upstreams.github", conf.Upstreams.GitHub},
		{"upstreams.fitbit", conf.Upstreams.FitBit},
		{"upstreams.lastfm", conf.Upstreams.LastFM},
		{"upstreams.goodreads", conf.Upstreams.Goodreads},
	} {
		if u.value == "" {
			continue
		}
		if _, err := url.ParseRequestURI(u.value); err != nil {
			return nil, &ErrorIllegal{
				FilePath: filePath,
				Feature:  u.feature,
				Message:  err.Error(),
			}
		}
	}

	return conf, nil
}

func duration(
	filePath, feature, value string, fallback time.Duration,
) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ErrorIllegal{
			FilePath: filePath,
			Feature:  feature,
			Message:  err.Error(),
		}
	}
	if d < 1 {
		return 0, &ErrorIllegal{
			FilePath: filePath,
			Feature:  feature,
			Message:  "timeout must be positive",
		}
	}
	return d, nil
}

type ErrorMissing struct {
	FilePath string
	Feature  string
}

func (e ErrorMissing) Error() string {
	var b strings.Builder
	if e.Feature == "" {
		b.Grow(len("missing ") + len(e.FilePath))
		b.WriteString("missing ")
		b.WriteString(e.FilePath)
		return b.String()
	}
	b.Grow(len("missing ") + len(e.Feature) + len(" in ") + len(e.FilePath))
	b.WriteString("missing ")
	b.WriteString(e.Feature)
	b.WriteString(" in ")
	b.WriteString(e.FilePath)
	return b.String()
}

type ErrorIllegal struct {
	FilePath string
	Feature  string
	Message  string
}

func (e ErrorIllegal) Error() string {
	var b strings.Builder
	b.Grow(len("illegal ") +
		len(e.Feature) +
		len(" in ") +
		len(e.FilePath) +
		len(": ") +
		len(e.Message))
	b.WriteString("illegal ")
	b.WriteString(e.Feature)
	b.WriteString(" in ")
	b.WriteString(e.FilePath)
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}
