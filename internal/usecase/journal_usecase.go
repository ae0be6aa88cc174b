package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gobooks/internal/domain"
)

// JournalUseCase drafts, posts, reverses and voids journal entries.
type JournalUseCase struct {
	txManager       TransactionManager
	journalRepo     JournalRepository
	idempotencyRepo IdempotencyRepository
	auditRepo       AuditRepository
	guard           PeriodGuard
	lines           lineValidator
	idGen           IDGenerator
	retrier         Retrier
	recorder        Recorder
	observer        LedgerObserver
	logger          zerolog.Logger
	now             func() time.Time
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(
	txManager TransactionManager,
	journalRepo JournalRepository,
	accountRepo AccountRepository,
	partnerRepo PartnerRepository,
	idempotencyRepo IdempotencyRepository,
	guard PeriodGuard,
	idGen IDGenerator,
) *JournalUseCase {
	return &JournalUseCase{
		txManager:       txManager,
		journalRepo:     journalRepo,
		idempotencyRepo: idempotencyRepo,
		guard:           guard,
		lines:           lineValidator{accountRepo: accountRepo, partnerRepo: partnerRepo},
		idGen:           idGen,
		retrier:         directRetrier{},
		recorder:        noopRecorder{},
		logger:          zerolog.Nop(),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithRetrier retries post transactions on transient storage failures.
func (uc *JournalUseCase) WithRetrier(r Retrier) *JournalUseCase {
	uc.retrier = r
	return uc
}

// WithAuditRepository enables audit rows.
func (uc *JournalUseCase) WithAuditRepository(repo AuditRepository) *JournalUseCase {
	uc.auditRepo = repo
	return uc
}

// WithRecorder sets the metrics sink.
func (uc *JournalUseCase) WithRecorder(r Recorder) *JournalUseCase {
	uc.recorder = r
	return uc
}

// WithObserver registers a listener for committed ledger changes.
func (uc *JournalUseCase) WithObserver(o LedgerObserver) *JournalUseCase {
	uc.observer = o
	return uc
}

// WithLogger sets the logger.
func (uc *JournalUseCase) WithLogger(l zerolog.Logger) *JournalUseCase {
	uc.logger = l
	return uc
}

// WithNow overrides the clock.
func (uc *JournalUseCase) WithNow(now func() time.Time) *JournalUseCase {
	uc.now = now
	return uc
}

// CreateEntryInput represents input for drafting a journal entry.
type CreateEntryInput struct {
	Date  time.Time
	Memo  string
	Lines []JournalLineInput
}

// UpdateEntryInput represents a partial draft update. Non-nil Lines replace all lines.
type UpdateEntryInput struct {
	Date  *time.Time
	Memo  *string
	Lines *[]JournalLineInput
}

// ReverseEntryInput represents input for reversing a posted entry.
type ReverseEntryInput struct {
	Date *time.Time
	Memo *string
}

// OpeningBalanceInput represents input for a manual opening entry.
type OpeningBalanceInput struct {
	Date       time.Time
	OpeningKey string
	Memo       string
	Lines      []JournalLineInput
}

// PostResult is the outcome of a post call. Body is the stored response and
// is identical for every replay of the same idempotency key.
type PostResult struct {
	Entry    *domain.JournalEntry
	Body     []byte
	Replayed bool
}

// CreateEntry opens a draft entry.
func (uc *JournalUseCase) CreateEntry(ctx context.Context, actor domain.Actor, input CreateEntryInput) (*domain.JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	if err := domain.ValidateMemo(input.Memo); err != nil {
		return nil, err
	}

	now := uc.now()
	entry := &domain.JournalEntry{
		ID:             uc.idGen.Generate(),
		OrganizationID: actor.OrganizationID,
		Date:           domain.NormalizeDate(input.Date),
		Memo:           input.Memo,
		Status:         domain.EntryStatusDraft,
		EntryType:      domain.EntryTypeRegular,
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	lines, err := buildLines(actor.OrganizationID, entry.ID, input.Lines, uc.idGen)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines

	err = withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if err := uc.guard.AssertOpen(ctx, tx, actor.OrganizationID, entry.Date); err != nil {
			return err
		}
		if err := uc.lines.validate(ctx, tx, actor.OrganizationID, entry.Lines); err != nil {
			return err
		}
		return uc.journalRepo.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// UpdateEntry edits a draft. Lines of a reversal draft may only be resubmitted unchanged.
func (uc *JournalUseCase) UpdateEntry(ctx context.Context, actor domain.Actor, id string, input UpdateEntryInput) (*domain.JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if input.Memo != nil {
		if err := domain.ValidateMemo(*input.Memo); err != nil {
			return nil, err
		}
	}

	var result *domain.JournalEntry
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if entry.Status != domain.EntryStatusDraft {
			return fmt.Errorf("%w: entry is %s", domain.ErrInvalidState, entry.Status)
		}

		if err := uc.guard.AssertOpen(ctx, tx, actor.OrganizationID, entry.Date); err != nil {
			return err
		}

		if input.Date != nil {
			if input.Date.IsZero() {
				return fmt.Errorf("%w: date is required", domain.ErrValidation)
			}
			entry.Date = domain.NormalizeDate(*input.Date)
			if err := uc.guard.AssertOpen(ctx, tx, actor.OrganizationID, entry.Date); err != nil {
				return err
			}
		}
		if input.Memo != nil {
			entry.Memo = *input.Memo
		}
		entry.UpdatedAt = uc.now()

		if input.Lines != nil {
			lines, err := buildLines(actor.OrganizationID, entry.ID, *input.Lines, uc.idGen)
			if err != nil {
				return err
			}
			if entry.IsReversal() && !domain.SameLineSet(entry.Lines, lines) {
				return fmt.Errorf("%w: lines of a reversing entry cannot be changed", domain.ErrValidation)
			}
			if err := uc.lines.validate(ctx, tx, actor.OrganizationID, lines); err != nil {
				return err
			}

			entry.Lines = lines
			if err := uc.journalRepo.ReplaceLines(ctx, tx, entry); err != nil {
				return err
			}
		}

		if err := uc.journalRepo.UpdateHeader(ctx, tx, entry); err != nil {
			return err
		}

		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetEntry returns an entry with its lines.
func (uc *JournalUseCase) GetEntry(ctx context.Context, orgID, id string) (*domain.JournalEntry, error) {
	return uc.journalRepo.GetByID(ctx, nil, orgID, id)
}

// ListEntries lists entry headers, newest date first.
func (uc *JournalUseCase) ListEntries(ctx context.Context, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: to is before from", domain.ErrValidation)
	}
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.journalRepo.List(ctx, nil, orgID, filter)
}

// PostEntry moves a draft to posted. The idempotency key makes retries of the
// same request replay the stored response instead of executing again.
func (uc *JournalUseCase) PostEntry(ctx context.Context, actor domain.Actor, id, idempotencyKey string) (*PostResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", domain.ErrValidation)
	}
	if len(idempotencyKey) > domain.MaxIdempotencyKeyLength {
		return nil, fmt.Errorf("%w: idempotency key exceeds %d characters", domain.ErrValidation, domain.MaxIdempotencyKeyLength)
	}

	var result *PostResult
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		result, err = uc.post(ctx, actor, id, idempotencyKey)
		return err
	})
	if err != nil {
		uc.recorder.JournalPostFailed()
		return nil, err
	}

	uc.recorder.JournalPosted(result.Replayed)
	if !result.Replayed {
		uc.notify(ctx, actor.OrganizationID)
	}

	uc.logger.Info().
		Str("organization_id", actor.OrganizationID).
		Str("entry_id", id).
		Str("actor", actor.UserID).
		Bool("replayed", result.Replayed).
		Msg("journal entry posted")

	return result, nil
}

func (uc *JournalUseCase) post(ctx context.Context, actor domain.Actor, id, key string) (*PostResult, error) {
	orgID := actor.OrganizationID
	var result *PostResult

	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		now := uc.now().Truncate(time.Microsecond)

		// 1. Idempotency reservation.
		record := &domain.IdempotencyRecord{
			ID:             uc.idGen.Generate(),
			OrganizationID: orgID,
			Scope:          domain.IdempotencyScopePost,
			Key:            key,
			RequestHash:    domain.RequestHash(domain.IdempotencyScopePost, id),
			CreatedAt:      now,
		}

		inserted, err := uc.idempotencyRepo.Reserve(ctx, tx, record)
		if err != nil {
			return err
		}
		if !inserted {
			replay, err := uc.replay(ctx, tx, record)
			if err != nil {
				return err
			}
			result = replay
			return nil
		}

		// 2. Row lock.
		entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}

		switch entry.Status {
		case domain.EntryStatusPosted:
			// 3. Already posted: answer with the current state.
			result, err = uc.storeResponse(ctx, tx, record, entry)
			return err
		case domain.EntryStatusDraft:
		default:
			// 4. State guard.
			return fmt.Errorf("%w: cannot post a %s entry", domain.ErrInvalidState, entry.Status)
		}

		// 5. Period check.
		if err := uc.guard.AssertOpen(ctx, tx, orgID, entry.Date); err != nil {
			return err
		}

		// 6. Reference and balance validation.
		if len(entry.Lines) < 2 {
			return fmt.Errorf("%w: at least two lines are required", domain.ErrEmptyEntry)
		}
		if err := domain.ValidateLines(entry.Lines); err != nil {
			return err
		}
		if err := uc.lines.validate(ctx, tx, orgID, entry.Lines); err != nil {
			return err
		}
		if err := domain.CheckBalanced(entry.Lines); err != nil {
			return err
		}

		// 7. Commit.
		postedBy := actor.UserID
		entry.Status = domain.EntryStatusPosted
		entry.PostedAt = &now
		entry.PostedBy = &postedBy
		entry.UpdatedAt = now
		if err := uc.journalRepo.UpdateHeader(ctx, tx, entry); err != nil {
			return err
		}

		result, err = uc.storeResponse(ctx, tx, record, entry)
		if err != nil {
			return err
		}

		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionJournalPost,
			domain.ResourceJournalEntry, entry.ID, nil, entry, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *JournalUseCase) replay(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord) (*PostResult, error) {
	existing, err := uc.idempotencyRepo.Get(ctx, tx, record.OrganizationID, record.Scope, record.Key)
	if errors.Is(err, domain.ErrNotFound) {
		// The reserving transaction has not committed yet.
		return nil, domain.ErrConcurrentRequest
	}
	if err != nil {
		return nil, err
	}
	if existing.RequestHash != record.RequestHash {
		return nil, domain.ErrIdempotencyKeyReused
	}
	if !existing.Completed() {
		return nil, domain.ErrConcurrentRequest
	}

	var entry domain.JournalEntry
	if err := json.Unmarshal(existing.ResponseBody, &entry); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}

	return &PostResult{Entry: &entry, Body: existing.ResponseBody, Replayed: true}, nil
}

func (uc *JournalUseCase) storeResponse(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord, entry *domain.JournalEntry) (*PostResult, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	record.ResponseStatus = http.StatusOK
	record.ResponseBody = body
	if err := uc.idempotencyRepo.SaveResponse(ctx, tx, record); err != nil {
		return nil, err
	}

	return &PostResult{Entry: entry, Body: body}, nil
}

// ReverseEntry drafts the mirror image of a posted entry. An existing
// non-void reversal is returned instead of creating another one.
func (uc *JournalUseCase) ReverseEntry(ctx context.Context, actor domain.Actor, id string, input ReverseEntryInput) (*domain.JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var result *domain.JournalEntry
	created := false
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		orgID := actor.OrganizationID

		original, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if original.Status != domain.EntryStatusPosted {
			return fmt.Errorf("%w: only posted entries can be reversed", domain.ErrInvalidState)
		}
		if original.EntryType != domain.EntryTypeRegular {
			return fmt.Errorf("%w: %s entries cannot be reversed", domain.ErrInvalidState, original.EntryType)
		}

		existing, err := uc.journalRepo.FindReversal(ctx, tx, orgID, original.ID)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, domain.ErrEntryNotFound) {
			return err
		}

		now := uc.now()
		date := domain.NormalizeDate(now)
		if input.Date != nil && !input.Date.IsZero() {
			date = domain.NormalizeDate(*input.Date)
		}
		memo := "Reversal of " + original.Memo
		if input.Memo != nil {
			memo = *input.Memo
		}
		if err := domain.ValidateMemo(memo); err != nil {
			return err
		}

		if err := uc.guard.AssertOpen(ctx, tx, orgID, date); err != nil {
			return err
		}

		reversal := &domain.JournalEntry{
			ID:             uc.idGen.Generate(),
			OrganizationID: orgID,
			Date:           date,
			Memo:           memo,
			Status:         domain.EntryStatusDraft,
			EntryType:      domain.EntryTypeRegular,
			ReversalOfID:   &original.ID,
			CreatedBy:      actor.UserID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		for _, l := range original.Lines {
			swapped := l.Swapped()
			swapped.ID = uc.idGen.Generate()
			swapped.EntryID = reversal.ID
			reversal.Lines = append(reversal.Lines, swapped)
		}
		if len(reversal.Lines) < 2 {
			return fmt.Errorf("%w: reversal needs at least two lines", domain.ErrEmptyEntry)
		}
		if err := domain.ValidateLines(reversal.Lines); err != nil {
			return err
		}
		if err := uc.lines.validate(ctx, tx, orgID, reversal.Lines); err != nil {
			return err
		}

		if err := uc.journalRepo.Create(ctx, tx, reversal); err != nil {
			return err
		}

		result = reversal
		created = true
		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionJournalReverse,
			domain.ResourceJournalEntry, original.ID, nil, reversal, now)
	})
	if err != nil {
		return nil, err
	}

	if created {
		uc.recorder.JournalReversed()
		uc.logger.Info().
			Str("organization_id", actor.OrganizationID).
			Str("entry_id", id).
			Str("reversal_id", result.ID).
			Msg("journal entry reversed")
	}

	return result, nil
}

// VoidEntry retires a draft without posting it.
func (uc *JournalUseCase) VoidEntry(ctx context.Context, actor domain.Actor, id string) (*domain.JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var result *domain.JournalEntry
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if entry.Status != domain.EntryStatusDraft {
			return fmt.Errorf("%w: only drafts can be voided", domain.ErrInvalidState)
		}

		now := uc.now()
		entry.Status = domain.EntryStatusVoid
		entry.UpdatedAt = now
		if err := uc.journalRepo.UpdateHeader(ctx, tx, entry); err != nil {
			return err
		}

		result = entry
		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionJournalVoid,
			domain.ResourceJournalEntry, entry.ID, nil, entry, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// CreateOpeningBalance writes a posted opening entry keyed by openingKey.
func (uc *JournalUseCase) CreateOpeningBalance(ctx context.Context, actor domain.Actor, input OpeningBalanceInput) (*domain.JournalEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	key := strings.TrimSpace(input.OpeningKey)
	if key == "" {
		return nil, fmt.Errorf("%w: opening_key is required", domain.ErrValidation)
	}

	memo := input.Memo
	if memo == "" {
		memo = "Opening balance " + key
	}

	now := uc.now().Truncate(time.Microsecond)
	entry := newPostedEntry(uc.idGen, actor, domain.NormalizeDate(input.Date), memo, domain.EntryTypeOpening, now)
	entry.OpeningKey = &key

	lines, err := buildLines(actor.OrganizationID, entry.ID, input.Lines, uc.idGen)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines

	err = withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if err := uc.guard.AssertOpen(ctx, tx, actor.OrganizationID, entry.Date); err != nil {
			return err
		}

		_, err := uc.journalRepo.FindByOpeningKey(ctx, tx, actor.OrganizationID, key)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyOpened, key)
		}
		if !errors.Is(err, domain.ErrEntryNotFound) {
			return err
		}

		if err := uc.lines.validate(ctx, tx, actor.OrganizationID, entry.Lines); err != nil {
			return err
		}
		if err := domain.CheckBalanced(entry.Lines); err != nil {
			return err
		}

		if err := uc.journalRepo.Create(ctx, tx, entry); err != nil {
			return err
		}

		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionOpeningCreate,
			domain.ResourceJournalEntry, entry.ID, nil, entry, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notify(ctx, actor.OrganizationID)
	return entry, nil
}

func (uc *JournalUseCase) notify(ctx context.Context, orgID string) {
	if uc.observer != nil {
		uc.observer.LedgerChanged(ctx, orgID)
	}
}

// newPostedEntry builds the header of an entry written directly as posted.
func newPostedEntry(idGen IDGenerator, actor domain.Actor, date time.Time, memo string, entryType domain.EntryType, now time.Time) *domain.JournalEntry {
	postedBy := actor.UserID
	return &domain.JournalEntry{
		ID:             idGen.Generate(),
		OrganizationID: actor.OrganizationID,
		Date:           date,
		Memo:           memo,
		Status:         domain.EntryStatusPosted,
		EntryType:      entryType,
		PostedAt:       &now,
		PostedBy:       &postedBy,
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
