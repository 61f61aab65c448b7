package common

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URL is an endpoint whose protocol, host, port and base path are configured independently
type URL struct {
	Protocol string `yaml:"protocol" env:"PROTOCOL"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Path     string `yaml:"path" env:"PATH"`
}

// ParseURL parses a raw url ("https://host:port/path")
func ParseURL(raw string) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("ParseURL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return URL{}, fmt.Errorf("ParseURL: %s: missing protocol or host", raw)
	}
	res := URL{Protocol: u.Scheme, Host: u.Hostname(), Path: u.Path}
	if p := u.Port(); p != "" {
		if res.Port, err = strconv.Atoi(p); err != nil {
			return URL{}, fmt.Errorf("ParseURL: invalid port %s", p)
		}
	} else {
		res.Port = defaultPort(u.Scheme)
	}
	return res, nil
}

// MustParseURL is like ParseURL but panics on error
func MustParseURL(raw string) URL {
	u, err := ParseURL(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func defaultPort(protocol string) int {
	switch protocol {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}

// IsZero returns true if the url is not configured
func (u URL) IsZero() bool {
	return u.Host == ""
}

// String returns the url. Port 80 and 443 are omitted.
func (u URL) String() string {
	host := u.Host
	if u.Port != 0 && u.Port != 80 && u.Port != 443 {
		host = fmt.Sprintf("%s:%d", u.Host, u.Port)
	}
	base := strings.TrimSuffix(u.Path, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return fmt.Sprintf("%s://%s%s", u.Protocol, host, base)
}

// WithSuffix appends the suffix to the url, joined by a single "/"
func (u URL) WithSuffix(suffix string) string {
	return strings.TrimSuffix(u.String(), "/") + "/" + strings.TrimPrefix(suffix, "/")
}

// Set implements flag.Value
func (u *URL) Set(s string) error {
	parsed, err := ParseURL(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
