package platform

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/trip-planner/pkg/audit"
	"github.com/txn2/trip-planner/pkg/upstream/synthetic"
)

func TestOptions(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := DefaultConfig()
	provider := synthetic.New(synthetic.Config{})
	logger := audit.NoopLogger{}
	now := func() time.Time { return time.Time{} }

	opts := &Options{}
	for _, opt := range []Option{
		WithConfig(cfg),
		WithVersion("v1.2.3"),
		WithDB(db),
		WithProvider(provider),
		WithAuditLogger(logger, nil),
		WithClock(now),
	} {
		opt(opts)
	}

	assert.Equal(t, cfg, opts.Config)
	assert.Equal(t, "v1.2.3", opts.Version)
	assert.Equal(t, db, opts.DB)
	assert.Equal(t, provider, opts.Provider)
	assert.Equal(t, logger, opts.AuditLogger)
	assert.Nil(t, opts.AuditQuerier)
	assert.NotNil(t, opts.Now)
}

func TestNew_OptionOverrides(t *testing.T) {
	provider := synthetic.New(synthetic.Config{Batches: 5})
	p := newTestPlatform(t, WithProvider(provider), WithAuditLogger(audit.NoopLogger{}, nil))

	assert.Same(t, provider, p.provider)
	assert.Equal(t, audit.NoopLogger{}, p.auditLogger)
}
