package medvault

import (
	"errors"
	"time"

	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/internal/rate"
	"github.com/MrEthical07/medvault/jwt"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/password"
	"github.com/MrEthical07/medvault/permission"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. Builders are single-use.
type Builder struct {
	config Config

	identities IdentityStore
	charts     ChartStore
	rateStore  rate.Store
	auditSink  AuditSink
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time

	permissions []string
	roles       map[string][]string

	built bool
}

// New returns a Builder seeded with DefaultConfig and the built-in role table.
func New() *Builder {
	return &Builder{
		config:      DefaultConfig(),
		permissions: permission.All,
		roles:       permission.DefaultRoles,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithIdentityStore sets the credential store. Required.
func (b *Builder) WithIdentityStore(s IdentityStore) *Builder {
	b.identities = s
	return b
}

// WithChartStore enables chart creation for newly registered patients.
func (b *Builder) WithChartStore(s ChartStore) *Builder {
	b.charts = s
	return b
}

// WithRateStore sets the sliding-window backend. Without one an in-process
// store is used.
func (b *Builder) WithRateStore(s rate.Store) *Builder {
	b.rateStore = s
	return b
}

// WithRedis is shorthand for WithRateStore(rate.NewRedisStore(client)).
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.rateStore = rate.NewRedisStore(client)
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every time-dependent decision.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithRoles(perms []string, roles map[string][]string) *Builder {
	b.permissions = perms
	b.roles = roles
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.identities == nil {
		return nil, errors.New("identity store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}

	// -------- PERMISSIONS --------
	roleManager, err := permission.Build(b.permissions, b.roles)
	if err != nil {
		return nil, err
	}
	for _, r := range []model.Role{model.RoleAdmin, model.RoleDoctor, model.RolePatient} {
		if _, ok := roleManager.GetMask(string(r)); !ok {
			return nil, errors.New("role table must define admin, doctor and patient")
		}
	}

	// -------- CREDENTIALS --------
	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- RATE / LOCKOUT / AUDIT --------
	rateStore := b.rateStore
	if rateStore == nil {
		rateStore = rate.NewMemoryStore()
	}
	limiter := rate.New(rateStore, rate.WithClock(now), rate.WithPrefix(cfg.RateLimit.RedisPrefix))
	throttle := limiters.NewThrottle(limiter, limiters.ThrottleConfig{
		Enabled:       cfg.RateLimit.Enabled,
		Auth:          rate.Policy{Limit: cfg.RateLimit.Auth.Limit, Window: cfg.RateLimit.Auth.Window},
		Sensitive:     rate.Policy{Limit: cfg.RateLimit.Sensitive.Limit, Window: cfg.RateLimit.Sensitive.Window},
		PasswordReset: rate.Policy{Limit: cfg.RateLimit.PasswordReset.Limit, Window: cfg.RateLimit.PasswordReset.Window},
	})
	guard := limiters.NewLockoutGuard(b.identities, limiters.LockoutConfig{
		Enabled:   cfg.Lockout.Enabled,
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}, now)
	sink := b.auditSink
	if sink == nil {
		sink = audit.NewZapSink(logger)
	}
	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink, logger)

	engine := &Engine{
		config:        cfg,
		identities:    b.identities,
		charts:        b.charts,
		notifier:      notifier,
		logger:        logger.Named("engine"),
		now:           now,
		roleManager:   roleManager,
		evaluator:     access.NewEvaluator(roleManager),
		hasher:        hasher,
		hashSlots:     make(chan struct{}, cfg.Password.MaxConcurrent),
		jwtManager:    jm,
		throttleGuard: throttle,
		lockout:       guard,
		audit:         dispatcher,
		metrics:       NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}
