package factory

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/loykin/gomato/internal/store"
	pg "github.com/loykin/gomato/internal/store/postgres"
	sq "github.com/loykin/gomato/internal/store/sqlite"
)

// NewFromDSN selects a store implementation based on DSN.
// Supported:
//   - sqlite:  "sqlite:///<path>", "file:///<path>" or bare filepath (treated as sqlite)
//   - postgres: DSN starting with "postgres://" or "postgresql://"
func NewFromDSN(dsn string) (store.Store, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if ld == "" {
		return nil, errors.New("empty DSN")
	}
	if strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://") {
		return pg.New(d)
	}
	if strings.HasPrefix(ld, "sqlite://") {
		return sq.New(d[len("sqlite://"):])
	}
	if strings.HasPrefix(ld, "file://") {
		u, err := url.Parse(d)
		if err != nil {
			return nil, fmt.Errorf("file URL %q: %w (escape '%%', '#' and '?' or use a bare path)", d, err)
		}
		return sq.New(filePath(u))
	}
	// default to sqlite path
	return sq.New(d)
}

// filePath returns the local path of a file URL. Windows drive paths arrive as /C:/x.
func filePath(u *url.URL) string {
	p := u.Path
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}
