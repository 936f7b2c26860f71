// Package config defines the runtime configuration for icbd and provides
// helpers for parsing listen addresses and group lists.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"icbd/internal/errors"
)

// Config holds every tuneable of the daemon.
type Config struct {
	// ── Listening ────────────────────────────────────────────────────
	Addresses []string // [addr][:port] specs; empty means the wildcard
	Inet4     bool     // -4: IPv4 only
	Inet6     bool     // -6: IPv6 only

	// ── Chat ─────────────────────────────────────────────────────────
	CreateGroups bool     // -C: logins may create new groups
	Groups       []string // -G: groups created at startup
	ModTab       string   // -M: moderator table path
	ServerName   string   // -S: name announced to clients
	NoDNS        bool     // -n: skip reverse resolution
	IdleTimeout  time.Duration

	// ── Logging ──────────────────────────────────────────────────────
	LogPrefix  string // -L: chat log sink, relative to the jail
	Foreground bool   // -d: log to stderr instead of syslog
	Verbose    int

	// ── Privilege separation ─────────────────────────────────────────
	User    string // unprivileged account
	WorkDir string // working directory inside the jail

	// ── Metrics ──────────────────────────────────────────────────────
	MetricsAddr string
}

// ── Listen specs ─────────────────────────────────────────────────────

// ListenSpec is one parsed [addr][:port] argument.  An empty Host
// means every local address.
type ListenSpec struct {
	Host string
	Port int
}

// Address returns the spec as host:port.
func (ls ListenSpec) Address() string {
	return net.JoinHostPort(ls.Host, strconv.Itoa(ls.Port))
}

// ParseListenSpec accepts "", ":7326", "host", "host:port", "[v6]",
// "[v6]:port" and a bare IPv6 literal.  The port defaults to
// DefaultPort and may be numeric or a service name.
func ParseListenSpec(spec string) (ListenSpec, error) {
	ls := ListenSpec{Port: DefaultPort}
	if spec == "" {
		return ls, nil
	}

	host, port := spec, ""
	switch {
	case strings.HasPrefix(spec, "["):
		end := strings.Index(spec, "]")
		if end < 0 {
			return ListenSpec{}, badSpec(spec, "missing ']'")
		}
		host = spec[1:end]
		rest := spec[end+1:]
		if rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return ListenSpec{}, badSpec(spec, "junk after ']'")
			}
			port = rest[1:]
		}
	case strings.Count(spec, ":") > 1:
		// bare IPv6 literal, no port
	default:
		if i := strings.LastIndex(spec, ":"); i >= 0 {
			host, port = spec[:i], spec[i+1:]
		}
	}
	ls.Host = host

	if port != "" {
		p, err := parsePort(port)
		if err != nil {
			return ListenSpec{}, badSpec(spec, err.Error())
		}
		ls.Port = p
	}
	return ls, nil
}

func parsePort(s string) (int, error) {
	if p, err := strconv.Atoi(s); err == nil {
		if p < 1 || p > 65535 {
			return 0, errors.New("port " + s + " out of range 1-65535")
		}
		return p, nil
	}
	p, err := net.LookupPort("tcp", s)
	if err != nil {
		return 0, errors.New("unknown service " + strconv.Quote(s))
	}
	return p, nil
}

func badSpec(spec, msg string) error {
	return &errors.ConfigError{
		Field:   "listen",
		Value:   spec,
		Message: msg,
		Hint:    "use [addr][:port], e.g. 0.0.0.0:7326 or [::1]:7326",
	}
}

// ListenSpecs parses every configured address.  With no addresses it
// returns a single wildcard spec on the default port.
func (c *Config) ListenSpecs() ([]ListenSpec, error) {
	if len(c.Addresses) == 0 {
		return []ListenSpec{{Port: DefaultPort}}, nil
	}
	out := make([]ListenSpec, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		ls, err := ParseListenSpec(a)
		if err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, nil
}

// Network returns the Go network name honouring -4 / -6.
func (c *Config) Network() string {
	switch {
	case c.Inet4:
		return "tcp4"
	case c.Inet6:
		return "tcp6"
	}
	return "tcp"
}

// ── Group list ───────────────────────────────────────────────────────

// ParseGroupList splits a comma separated -G argument, dropping empty
// entries.
func ParseGroupList(list string) []string {
	var out []string
	for _, g := range strings.Split(list, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Inet4 && c.Inet6 {
		return &errors.ConfigError{
			Field:   "inet6",
			Message: "can't specify both -4 and -6",
		}
	}
	if _, err := c.ListenSpecs(); err != nil {
		return err
	}
	for _, g := range c.Groups {
		if len(g) >= MaxGroupLen {
			return &errors.ConfigError{
				Field:   "groups",
				Value:   g,
				Message: "group name too long",
				Hint:    "group names are limited to " + strconv.Itoa(MaxGroupLen-1) + " bytes",
			}
		}
	}
	if c.IdleTimeout < 0 {
		return &errors.ConfigError{
			Field:   "timeout",
			Value:   c.IdleTimeout,
			Message: "must not be negative",
		}
	}
	if c.User == "" {
		return &errors.ConfigError{
			Field:   "user",
			Message: "an unprivileged account is required",
			Hint:    "the default is " + DefaultUser,
		}
	}
	return nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.WorkDir == "" {
		c.WorkDir = DefaultWorkDir
	}
}
