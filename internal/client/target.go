package client

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrInvalidTarget marks errors caused by the target description itself, as
// opposed to failures talking to the database.
var ErrInvalidTarget = errors.New("invalid target")

// Target describes a database to open a pool against. Name, when set, refers
// to a configured named target; only the credentials given here override it.
type Target struct {
	Name           string
	Kind           Kind
	Host           string
	Port           int
	Database       string
	UseServiceName bool
	Username       string
	Password       string
}

// Label is the human-readable tag for sessions opened against the target.
func (t Target) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Database
}

// Validate checks the address fields without touching the network.
func (t Target) Validate() error {
	if _, err := t.Kind.driverName(""); err != nil {
		return err
	}
	if t.Database == "" {
		return fmt.Errorf("%w: database is required", ErrInvalidTarget)
	}
	if !t.Kind.networked() {
		return nil
	}
	if t.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidTarget)
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidTarget, t.Port)
	}
	if t.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidTarget)
	}
	return nil
}

// DSN builds the driver connection string for the target. Every kind has a
// single grammar, except Oracle where UseServiceName picks service-name or SID
// addressing.
func (t Target) DSN(connectTimeout time.Duration, sslMode string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	hostPort := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	secs := timeoutSeconds(connectTimeout)

	switch t.Kind {
	case Postgres:
		if sslMode == "" {
			sslMode = "disable"
		}
		q := url.Values{}
		q.Set("sslmode", sslMode)
		q.Set("connect_timeout", secs)
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(t.Username, t.Password),
			Host:     hostPort,
			Path:     "/" + t.Database,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case Oracle:
		q := url.Values{}
		q.Set("CONNECTION TIMEOUT", secs)
		u := url.URL{
			Scheme: "oracle",
			User:   url.UserPassword(t.Username, t.Password),
			Host:   hostPort,
		}
		if t.UseServiceName {
			u.Path = "/" + t.Database
		} else {
			q.Set("SID", t.Database)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil

	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = t.Username
		cfg.Passwd = t.Password
		cfg.Net = "tcp"
		cfg.Addr = hostPort
		cfg.DBName = t.Database
		cfg.Timeout = connectTimeout
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil

	case SQLServer:
		q := url.Values{}
		q.Set("database", t.Database)
		q.Set("dial timeout", secs)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(t.Username, t.Password),
			Host:     hostPort,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case SQLite:
		q := url.Values{}
		q.Set("_busy_timeout", strconv.FormatInt(connectTimeout.Milliseconds(), 10))
		return "file:" + t.Database + "?" + q.Encode(), nil
	}

	return "", fmt.Errorf("%w: unsupported database type %q", ErrInvalidTarget, string(t.Kind))
}

// timeoutSeconds rounds up to whole seconds; drivers treat 0 as "no timeout",
// so anything positive becomes at least 1.
func timeoutSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
