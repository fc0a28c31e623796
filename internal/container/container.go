// Package container provides dependency injection for the church-ledger
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/church-ledger/internal/balance"
	"fjacquet/church-ledger/internal/config"
	"fjacquet/church-ledger/internal/database"
	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/dues"
	"fjacquet/church-ledger/internal/emailmatch"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/memomatch"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/reconcile"
	"fjacquet/church-ledger/internal/rules"
	"fjacquet/church-ledger/internal/statement"
	"fjacquet/church-ledger/internal/store"

	"gorm.io/gorm"
)

// Container holds all application dependencies and provides methods to access
// them. It is immutable after creation.
type Container struct {
	logger logging.Logger
	config *config.Config
	db     *gorm.DB
	store  *store.Store
	rules  *rules.Rules

	importer   *statement.Importer
	balance    *balance.Accumulator
	memos      *memomatch.Service
	reconciler *reconcile.Service
	dues       *dues.Engine
	matcher    *emailmatch.Matcher
}

// Option customises container construction.
type Option func(*options)

type options struct {
	logger logging.Logger
	clock  dateutils.Clock
	source emailmatch.MessageSource
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces the wall clock.
func WithClock(c dateutils.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMessageSource replaces the configured mail directory.
func WithMessageSource(s emailmatch.MessageSource) Option {
	return func(o *options) { o.source = s }
}

// NewContainer opens the database, migrates it and wires every service.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var defaults []logging.Field
		if cfg.Organization.Name != "" {
			defaults = append(defaults, logging.Field{Key: logging.FieldOrganization, Value: cfg.Organization.Name})
		}
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format, defaults...)
	}
	clock := o.clock
	if clock == nil {
		clock = dateutils.SystemClock{Location: cfg.Location()}
	}

	r, err := rules.Load(cfg.Ledger.RulesFile, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.DefaultGLCode != "" {
		r.DefaultGLCode = cfg.Ledger.DefaultGLCode
	}
	r.IgnoredSenders = append(r.IgnoredSenders, cfg.Email.IgnoredSenders...)
	r.Boilerplate = append(r.Boilerplate, cfg.Email.Boilerplate...)

	duesType, err := models.ParsePaymentType(cfg.Ledger.DuesPaymentType)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger.dues_payment_type: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	s := store.New(db)

	memos := memomatch.NewService(s, logger)
	reconciler := reconcile.NewService(s, memos, r, logger, reconcile.WithClock(clock))
	engine := dues.NewEngine(s, clock, duesType, logger)
	reconciler.OnCommit(engine.RefreshOnPosting)

	importer := statement.NewImporter(s, statement.NewClassifier(r.BankTypes), statement.Options{
		Delimiter:  cfg.DelimiterRune(),
		DateLayout: cfg.Statement.DateFormat,
	}, logger)

	source := o.source
	if source == nil && cfg.Email.Maildir != "" {
		source = emailmatch.NewMaildirSource(cfg.Email.Maildir, logger)
	}
	var matcher *emailmatch.Matcher
	if source != nil {
		parser := emailmatch.NewParser(r.IgnoredSenders, r.Boilerplate, cfg.Location())
		matcher = emailmatch.NewMatcher(source, parser, s, memos, reconciler, duesType, logger)
	}

	logger.Info("Container initialized successfully",
		logging.Field{Key: "driver", Value: cfg.Database.Driver},
		logging.Field{Key: "email_enabled", Value: matcher != nil})

	return &Container{
		logger:     logger,
		config:     cfg,
		db:         db,
		store:      s,
		rules:      r,
		importer:   importer,
		balance:    balance.NewAccumulator(s, logger),
		memos:      memos,
		reconciler: reconciler,
		dues:       engine,
		matcher:    matcher,
	}, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the store.
func (c *Container) GetStore() *store.Store {
	return c.store
}

// GetRules returns the effective classification and GL rules.
func (c *Container) GetRules() *rules.Rules {
	return c.rules
}

// GetImporter returns the statement importer.
func (c *Container) GetImporter() *statement.Importer {
	return c.importer
}

// GetBalance returns the balance accumulator.
func (c *Container) GetBalance() *balance.Accumulator {
	return c.balance
}

// GetMemos returns the memo match service.
func (c *Container) GetMemos() *memomatch.Service {
	return c.memos
}

// GetReconciler returns the reconciliation service.
func (c *Container) GetReconciler() *reconcile.Service {
	return c.reconciler
}

// GetDues returns the dues engine.
func (c *Container) GetDues() *dues.Engine {
	return c.dues
}

// GetMatcher returns the email matcher. It fails when no mail source is
// configured.
func (c *Container) GetMatcher() (*emailmatch.Matcher, error) {
	if c.matcher == nil {
		return nil, fmt.Errorf("email matching is not configured: set email.maildir")
	}
	return c.matcher, nil
}

// Close releases the database connection.
func (c *Container) Close() error {
	if err := database.Close(c.db); err != nil {
		return err
	}
	c.logger.Debug("Container closed")
	return nil
}
