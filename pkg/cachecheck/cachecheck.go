// pkg/cachecheck/cachecheck.go

package cachecheck

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/panelctl/pkg/panel_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultAddr is where the redis-server package listens out of the box.
const DefaultAddr = "127.0.0.1:6379"

// Checker verifies the cache server the queue worker depends on answers.
type Checker struct {
	Addr string
}

// New returns a Checker against the local redis instance.
func New() *Checker {
	return &Checker{Addr: DefaultAddr}
}

// Ping opens a short-lived connection and round-trips a PING.
func (c *Checker) Ping(rc *panel_io.RuntimeContext) error {
	addr := c.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 5 * time.Second,
	})
	defer client.Close()

	if err := client.Ping(rc.Ctx).Err(); err != nil {
		return cerr.Wrapf(err, "redis at %s not answering", addr)
	}
	otelzap.Ctx(rc.Ctx).Info("Cache server answered", zap.String("addr", addr))
	return nil
}
