package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patientalert/authcore/password"
	"github.com/patientalert/authcore/store"
	"github.com/patientalert/authcore/token"
	"github.com/patientalert/authcore/tracker"
)

// Builder assembles an [Engine]. Configure it once, call Build once, and
// discard it; a Builder is not safe for concurrent use.
type Builder struct {
	config   Config
	redis    *redis.Client
	notifier Notifier
	sink     AuditSink
	logger   *zap.Logger

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithTokenSecret sets the HS256 signing secret without replacing the rest
// of the configuration.
func (b *Builder) WithTokenSecret(secret []byte) *Builder {
	b.config.Token.Secret = secret
	return b
}

// WithRedis sets the Redis client backing both the credential store and the
// session tracker. Required.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets the code delivery channel. Defaults to [NoOpNotifier].
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination. Defaults to [NoOpAuditSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, wires the dependencies, and starts the
// audit dispatcher. A Builder can build at most one Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret: b.config.Token.Secret,
		TTL:    b.config.Token.TTL,
		Issuer: b.config.Token.Issuer,
		Leeway: b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	metrics := newMetrics(b.config.Metrics)

	engine := &Engine{
		config:   b.config,
		accounts: store.New(b.redis, b.config.Store.KeyPrefix),
		sessions: tracker.New(b.redis, b.config.Session.KeyPrefix),
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}

	if b.config.Audit.Enabled {
		sink := b.sink
		if sink == nil {
			sink = NoOpAuditSink{}
		}
		engine.audit = newAuditDispatcher(sink, b.config.Audit, metrics)
	}

	b.built = true
	return engine, nil
}
