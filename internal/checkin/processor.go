// Package checkin holds the only path by which a guest becomes CHECKED_IN.
// The processor consults the quota ledger and guest registry, enforces the
// guest state machine, and leaves a scan log row behind for every attempt,
// allowed or denied.
package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"accessos/internal/dto"
	"accessos/internal/model"
	"accessos/internal/repo"
)

// GuestRegistry is the slice of the repository the processor reads and
// transitions guests through.
type GuestRegistry interface {
	GetGuestByID(ctx context.Context, id string) (*model.Guest, error)
	SetGuestState(ctx context.Context, guestID string, from, to model.GuestState) error
}

// QuotaLedger is the authority for remaining capacity per (group, tier) pair.
// Reserve must be atomic: two concurrent reservations never both win the last
// unit.
type QuotaLedger interface {
	GetAllocation(ctx context.Context, groupID, tierID string) (*model.Allocation, error)
	EnsureAllocation(ctx context.Context, groupID, tierID string, defaultCap int) error
	ReserveAllocationUnit(ctx context.Context, groupID, tierID string) error
	ReleaseAllocationUnit(ctx context.Context, groupID, tierID string) error
}

// AuditLog appends immutable scan records.
type AuditLog interface {
	AppendScanLog(ctx context.Context, entry *model.ScanLog) (string, error)
}

// Publisher fans scan outcomes out to interested consumers. Publishing is
// best-effort and never blocks a check-in decision.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

// Policy controls what happens when a guest's group has no allocation for the
// guest's tier.
type Policy struct {
	// LazyProvision provisions a missing allocation on first use instead of
	// denying the guest.
	LazyProvision bool
	// DefaultCap is the cap_total for lazily provisioned allocations.
	DefaultCap int
}

type Processor struct {
	registry GuestRegistry
	ledger   QuotaLedger
	audit    AuditLog
	pub      Publisher
	policy   Policy
	log      *zerolog.Logger
}

func NewProcessor(registry GuestRegistry, ledger QuotaLedger, audit AuditLog, pub Publisher, policy Policy, log *zerolog.Logger) *Processor {
	return &Processor{
		registry: registry,
		ledger:   ledger,
		audit:    audit,
		pub:      pub,
		policy:   policy,
		log:      log,
	}
}

// Result carries the committed guest and the ledger snapshot after a
// successful check-in.
type Result struct {
	Guest      *model.Guest
	Reason     model.ScanReason
	Allocation *model.Allocation
}

// CheckIn admits the guest if they are still INVITED and their group has
// remaining quota in their tier. The sequence is reserve, transition, log;
// any failure after a successful reservation is compensated so capacity is
// never consumed without a corresponding checked-in guest.
func (p *Processor) CheckIn(ctx context.Context, eventID, guestID, scannedBy string, scanned bool) (*Result, error) {
	guest, err := p.registry.GetGuestByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if guest.EventID != eventID {
		return nil, repo.ErrGuestNotFound
	}
	if guest.State != model.GuestInvited {
		// A second check-in is rejected, never silently accepted. The attempt
		// still lands in the scan log.
		p.recordDenial(ctx, guest, scannedBy, model.ReasonInvalidState)
		return nil, repo.ErrInvalidTransition
	}

	reason := model.ReasonManualCheckIn
	if scanned {
		reason = model.ReasonScanned
	}

	err = p.reserve(ctx, guest)
	if errors.Is(err, repo.ErrQuotaExceeded) {
		// Denials are always recorded before being returned.
		p.recordDenial(ctx, guest, scannedBy, model.ReasonQuotaExceeded)
		return nil, repo.ErrQuotaExceeded
	}
	if err != nil {
		return nil, err
	}

	// The reservation is held from here on. An abandoned request must not
	// leave a reserved-but-unused unit behind.
	if err := ctx.Err(); err != nil {
		p.release(guest)
		return nil, err
	}

	if err := p.registry.SetGuestState(ctx, guest.ID, model.GuestInvited, model.GuestCheckedIn); err != nil {
		p.release(guest)
		return nil, err
	}

	entry := &model.ScanLog{
		EventID:         guest.EventID,
		GuestID:         guest.ID,
		Result:          model.ScanAllowed,
		Reason:          reason,
		ScannedByUserID: scannedBy,
	}
	if _, err := p.audit.AppendScanLog(ctx, entry); err != nil {
		p.rollbackCheckIn(ctx, guest, scannedBy, err)
		return nil, fmt.Errorf("append scan log: %w", err)
	}

	guest.State = model.GuestCheckedIn
	p.publish(guest, scannedBy, model.ScanAllowed, reason, false)

	res := &Result{Guest: guest, Reason: reason}
	if alloc, err := p.ledger.GetAllocation(ctx, guest.StakeholderGroupID, guest.AccessTierID); err == nil {
		res.Allocation = alloc
	}
	return res, nil
}

// Deny moves an invited guest to DENIED by explicit staff action and records
// the denial in the scan log.
func (p *Processor) Deny(ctx context.Context, guestID, actorID string) (*model.Guest, error) {
	guest, err := p.registry.GetGuestByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if err := p.registry.SetGuestState(ctx, guest.ID, model.GuestInvited, model.GuestDenied); err != nil {
		return nil, err
	}
	guest.State = model.GuestDenied
	p.recordDenial(ctx, guest, actorID, model.ReasonStaffDenied)
	return guest, nil
}

// Revoke reverses a check-in: the guest moves to REVOKED and the quota unit
// their admission consumed is handed back to the allocation.
func (p *Processor) Revoke(ctx context.Context, guestID, actorID string) (*model.Guest, error) {
	guest, err := p.registry.GetGuestByID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if err := p.registry.SetGuestState(ctx, guest.ID, model.GuestCheckedIn, model.GuestRevoked); err != nil {
		return nil, err
	}
	guest.State = model.GuestRevoked
	if err := p.ledger.ReleaseAllocationUnit(context.WithoutCancel(ctx), guest.StakeholderGroupID, guest.AccessTierID); err != nil {
		p.log.Error().Err(err).
			Str("guest_id", guest.ID).
			Str("actor_id", actorID).
			Msg("failed to release quota unit after revocation")
	}
	return guest, nil
}

func (p *Processor) reserve(ctx context.Context, guest *model.Guest) error {
	err := p.ledger.ReserveAllocationUnit(ctx, guest.StakeholderGroupID, guest.AccessTierID)
	if !errors.Is(err, repo.ErrAllocationNotFound) {
		return err
	}
	if !p.policy.LazyProvision {
		return err
	}
	if err := p.ledger.EnsureAllocation(ctx, guest.StakeholderGroupID, guest.AccessTierID, p.policy.DefaultCap); err != nil {
		return err
	}
	return p.ledger.ReserveAllocationUnit(ctx, guest.StakeholderGroupID, guest.AccessTierID)
}

func (p *Processor) release(guest *model.Guest) {
	if err := p.ledger.ReleaseAllocationUnit(context.WithoutCancel(context.Background()), guest.StakeholderGroupID, guest.AccessTierID); err != nil {
		p.reportAuditGap(guest, "release failed after aborted check-in", err)
	}
}

// rollbackCheckIn compensates a committed state change whose scan log append
// failed. If compensation itself fails the ledger is out of step with the
// registry, which is an audit gap that must surface loudly.
func (p *Processor) rollbackCheckIn(ctx context.Context, guest *model.Guest, scannedBy string, cause error) {
	bg := context.WithoutCancel(ctx)
	revertErr := p.registry.SetGuestState(bg, guest.ID, model.GuestCheckedIn, model.GuestInvited)
	releaseErr := p.ledger.ReleaseAllocationUnit(bg, guest.StakeholderGroupID, guest.AccessTierID)
	if revertErr != nil || releaseErr != nil {
		p.reportAuditGap(guest, fmt.Sprintf("compensation failed after scan log error: %v", cause), errors.Join(revertErr, releaseErr))
		return
	}
	p.log.Warn().Err(cause).
		Str("guest_id", guest.ID).
		Str("scanned_by", scannedBy).
		Msg("check-in rolled back: scan log append failed")
}

func (p *Processor) recordDenial(ctx context.Context, guest *model.Guest, scannedBy string, reason model.ScanReason) {
	entry := &model.ScanLog{
		EventID:         guest.EventID,
		GuestID:         guest.ID,
		Result:          model.ScanDenied,
		Reason:          reason,
		ScannedByUserID: scannedBy,
	}
	if _, err := p.audit.AppendScanLog(context.WithoutCancel(ctx), entry); err != nil {
		p.reportAuditGap(guest, "failed to record denial", err)
		return
	}
	p.publish(guest, scannedBy, model.ScanDenied, reason, false)
}

// reportAuditGap is the secondary diagnostics channel for failures the scan
// log itself could not capture. It always logs and, when messaging is up,
// also publishes a flagged scan event.
func (p *Processor) reportAuditGap(guest *model.Guest, what string, err error) {
	p.log.Error().Err(err).
		Str("event_id", guest.EventID).
		Str("guest_id", guest.ID).
		Msgf("AUDIT GAP: %s", what)
	p.publish(guest, "", model.ScanDenied, model.ReasonInvalidState, true)
}

func (p *Processor) publish(guest *model.Guest, scannedBy string, result model.ScanResult, reason model.ScanReason, auditGap bool) {
	if p.pub == nil {
		return
	}
	msg := dto.ScanEventMessage{
		EventID:    guest.EventID,
		GuestID:    guest.ID,
		GroupID:    guest.StakeholderGroupID,
		TierID:     guest.AccessTierID,
		Result:     result,
		Reason:     reason,
		ScannedBy:  scannedBy,
		AuditGap:   auditGap,
		OccurredAt: time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to marshal scan event")
		return
	}
	if err := p.pub.Publish(payload, 0); err != nil {
		p.log.Warn().Err(err).Str("guest_id", guest.ID).Msg("failed to publish scan event")
	}
}
