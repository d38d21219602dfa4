package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	applog "pagecraft/app/internal/platform/log"
)

const defaultPingTimeout = 2 * time.Second

// ConnectOptions defines how the Redis client is built.
type ConnectOptions struct {
	Addr        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

// Connect creates a Redis client and verifies it answers a PING.
func Connect(ctx context.Context, opts ConnectOptions, logger *logrus.Logger) (*goredis.Client, error) {
	if opts.Addr == "" {
		return nil, eris.New("redis address is required")
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		applog.ComponentError(logger, "redis", logrus.Fields{"addr": opts.Addr}, err, "redis unavailable")
		return nil, eris.Wrapf(err, "connecting to redis at %s", opts.Addr)
	}

	if logger != nil {
		applog.Component(logger, "redis").WithField("addr", opts.Addr).Info("connected to redis")
	}

	return client, nil
}
