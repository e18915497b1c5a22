package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"

	"accessos/internal/model"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrZoneNotFound       = errors.New("zone not found")
	ErrTierNotFound       = errors.New("access tier not found")
	ErrGroupNotFound      = errors.New("stakeholder group not found")
	ErrGuestNotFound      = errors.New("guest not found")
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrQuotaExceeded is a legitimate business outcome, not a failure: the
	// allocation exists but has no remaining capacity.
	ErrQuotaExceeded = errors.New("allocation quota exceeded")
	// ErrInvalidTransition signals a guest state machine violation.
	ErrInvalidTransition = errors.New("invalid guest state transition")
	// ErrStoreUnavailable marks retryable backend failures, distinct from a
	// definitive denial or a caller mistake.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	ErrDuplicateZone       = errors.New("zone name already used in this event")
	ErrDuplicateTier       = errors.New("tier name already used in this event")
	ErrDuplicateAllocation = errors.New("allocation already exists for this group and tier")
	ErrCapBelowUsed        = errors.New("cap_total below current cap_used")
)

type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) (string, error)
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)

	CreateZone(ctx context.Context, z *model.Zone) (string, error)
	GetZonesByEventID(ctx context.Context, eventID string) ([]model.Zone, error)
	DeleteZone(ctx context.Context, id string) error

	CreateTier(ctx context.Context, t *model.AccessTier) (string, error)
	GetTiersByEventID(ctx context.Context, eventID string) ([]model.AccessTier, error)
	DeleteTier(ctx context.Context, id string) error
	EnsureStandardTiers(ctx context.Context, eventID string) ([]model.AccessTier, error)

	GetTierZonesByEventID(ctx context.Context, eventID string) ([]model.TierZonePair, error)
	GetAllowedZones(ctx context.Context, tierID string) ([]string, error)
	ReplaceTierZonesTx(ctx context.Context, tierID string, zoneIDs []string) error

	CreateStakeholderGroup(ctx context.Context, g *model.StakeholderGroup) (string, error)
	GetStakeholderGroupsByEventID(ctx context.Context, eventID string) ([]model.StakeholderGroup, error)
	GetStakeholderGroupByID(ctx context.Context, id string) (*model.StakeholderGroup, error)

	GetAllocation(ctx context.Context, groupID, tierID string) (*model.Allocation, error)
	GetAllocationsByEventID(ctx context.Context, eventID string) ([]model.Allocation, error)
	CreateAllocation(ctx context.Context, a *model.Allocation) (string, error)
	UpdateAllocationCap(ctx context.Context, allocationID string, capTotal int) error
	EnsureAllocation(ctx context.Context, groupID, tierID string, defaultCap int) error
	ReserveAllocationUnit(ctx context.Context, groupID, tierID string) error
	ReleaseAllocationUnit(ctx context.Context, groupID, tierID string) error
	EnsureGuestDefaultsTx(ctx context.Context, eventID, ownerUserID string, defaultCap int) (groupID, tierID string, err error)

	CreateGuest(ctx context.Context, g *model.Guest) (string, error)
	GetGuestByID(ctx context.Context, id string) (*model.Guest, error)
	SearchGuests(ctx context.Context, eventID, query string) ([]model.Guest, error)
	SetGuestState(ctx context.Context, guestID string, from, to model.GuestState) error
	DeleteGuest(ctx context.Context, id string) error

	AppendScanLog(ctx context.Context, entry *model.ScanLog) (string, error)
	GetScanLogsByEventID(ctx context.Context, eventID string) ([]model.ScanLog, error)
	GetScanLogsByGuestID(ctx context.Context, guestID string) ([]model.ScanLog, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type Options struct {
	// StoreTimeout bounds every single call to the backing store.
	StoreTimeout time.Duration
	// ReadRetry governs bounded retries of read queries that failed with a
	// retryable store error. Writes are never auto-retried.
	ReadRetry retry.Strategy
}

type repository struct {
	db      *dbpg.DB
	log     *zerolog.Logger
	timeout time.Duration
	retry   retry.Strategy
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger, opts Options) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.ReadRetry.Attempts <= 0 {
		opts.ReadRetry = retry.Strategy{Attempts: 3, Delay: 100 * time.Millisecond, Backoff: 2}
	}
	return &repository{db: db, log: log, timeout: opts.StoreTimeout, retry: opts.ReadRetry}, nil
}

// opCtx derives the per-call deadline every store operation runs under.
func (r *repository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// mapStoreErr folds timeouts and connection failures into ErrStoreUnavailable
// so callers can tell a retryable outage from a definitive answer.
func mapStoreErr(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// readWithRetry retries fn with the configured bounded strategy, but only
// while the failure is a retryable store outage.
func (r *repository) readWithRetry(fn func() error) error {
	var lastErr error
	_ = retry.Do(func() error {
		lastErr = fn()
		if lastErr != nil && errors.Is(lastErr, ErrStoreUnavailable) {
			return lastErr
		}
		return nil
	}, r.retry)
	return lastErr
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}
