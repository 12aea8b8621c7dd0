package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/repository"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// Generator produces text for a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationStore is the persistence surface GenerationService needs.
type GenerationStore interface {
	repository.AccountStore
	repository.GenerationStore
}

// GenerationService runs credit-metered generations and serves their history.
type GenerationService struct {
	store     GenerationStore
	generator Generator
	locker    Locker
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration
}

// NewGenerationService creates a GenerationService. A nil locker gets an
// in-process LocalLocker.
func NewGenerationService(store GenerationStore, generator Generator, locker Locker, recorder metrics.Recorder, logger *slog.Logger) *GenerationService {
	if locker == nil {
		locker = NewLocalLocker(0)
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		store:     store,
		generator: generator,
		locker:    locker,
		metrics:   recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// SetTimeout bounds the work done while the account lock is held, from the
// balance read through the generator call. Zero means no bound. Keep it below
// the lock lease and the server write timeout.
func (s *GenerationService) SetTimeout(d time.Duration) {
	s.timeout = d
}

// GenerateInput defines input for one generation.
type GenerateInput struct {
	AccountID      string
	TemplateSlug   string
	TemplateName   string
	InputFields    model.Fields
	PromptTemplate string
	ComponentType  model.ComponentType
}

// GenerateOutput is the stored record plus the post-debit quota.
type GenerateOutput struct {
	Record        *model.GenerationRecord
	CreditBalance int64
	CreditCeiling int64
}

// Generate checks quota, calls the generator, then debits the output length
// and appends the record as one unit.
//
// Generations for one account are serialized, so a balance of exactly one
// generation admits exactly one caller. Once output is received the debit is
// written even if ctx is cancelled; before that, cancellation or the
// generation timeout costs nothing.
func (s *GenerationService) Generate(ctx context.Context, input GenerateInput) (*GenerateOutput, error) {
	if err := validateGenerateInput(input); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, input.AccountID)
	if err != nil {
		return nil, newError(KindAccountBusy, ErrAccountBusy.Message, err)
	}
	defer unlock()

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	account, err := s.store.GetAccountByID(callCtx, input.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(KindNotFound, "account not found", err)
		}
		return nil, internal("failed to load account", err)
	}

	if !account.HasCredits() {
		s.metrics.IncGeneration(metrics.StatusRejected)
		s.logger.Info("generation rejected",
			slog.String("account_id", account.ID),
			slog.String("reason", "quota_exhausted"),
			slog.Int64("credit_balance", account.CreditBalance),
		)
		return nil, ErrQuotaExhausted
	}

	prompt := model.ComposePrompt(input.PromptTemplate, input.InputFields, input.ComponentType)

	start := s.now()
	text, err := s.generator.Generate(callCtx, prompt)
	s.metrics.ObserveGenerationDuration(s.now().Sub(start))
	if err != nil {
		s.metrics.IncGeneration(metrics.StatusFailed)
		s.logger.Warn("generation failed",
			slog.String("account_id", account.ID),
			slog.String("template", input.TemplateSlug),
			slog.String("error", err.Error()),
		)
		return nil, newError(KindGeneration, ErrGeneration.Message, err)
	}

	record := model.NewGenerationRecord(
		ulid.Make().String(),
		account.ID,
		input.TemplateSlug,
		input.TemplateName,
		input.InputFields,
		text,
		s.now().UTC(),
	)

	// The caller already has a response in flight; the debit must land.
	updated, err := s.store.DebitCredits(context.WithoutCancel(ctx), record)
	if err != nil {
		s.logger.Error("failed to record generation",
			slog.String("account_id", account.ID),
			slog.String("generation_id", record.ID),
			slog.Int64("output_length", record.OutputLength),
			slog.String("error", err.Error()),
		)
		return nil, internal("failed to record generation", err)
	}

	s.metrics.IncGeneration(metrics.StatusSuccess)
	s.metrics.AddCreditsDebited(record.OutputLength)
	s.logger.Info("generation completed",
		slog.String("account_id", account.ID),
		slog.String("generation_id", record.ID),
		slog.String("template", input.TemplateSlug),
		slog.Int64("output_length", record.OutputLength),
		slog.Int64("credit_balance", updated.CreditBalance),
	)

	return &GenerateOutput{
		Record:        record,
		CreditBalance: updated.CreditBalance,
		CreditCeiling: updated.CreditCeiling,
	}, nil
}

func validateGenerateInput(input GenerateInput) error {
	if input.AccountID == "" {
		return invalidInput("account is required")
	}
	if strings.TrimSpace(input.TemplateSlug) == "" {
		return invalidInput("templateSlug is required")
	}
	if strings.TrimSpace(input.TemplateName) == "" {
		return invalidInput("templateName is required")
	}
	if strings.TrimSpace(input.PromptTemplate) == "" {
		return invalidInput("aiPrompt is required")
	}
	if input.InputFields.Len() == 0 {
		return invalidInput("formData must contain at least one field")
	}
	if input.ComponentType != "" {
		if _, ok := input.ComponentType.Instruction(); !ok {
			return invalidInput("unknown componentType %q", input.ComponentType)
		}
	}
	return nil
}

// HistoryPage is one page of an account's generation history.
type HistoryPage struct {
	Records []*model.GenerationRecord `json:"records"`
	Total   int64                     `json:"total"`
	Page    int                       `json:"page"`
	Pages   int64                     `json:"pages"`
	Limit   int                       `json:"limit"`
}

// History returns an account's records newest first. Page is 1-based;
// out-of-range values fall back to defaults.
func (s *GenerationService) History(ctx context.Context, accountID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, total, err := s.store.ListGenerations(ctx, accountID, repository.Page{
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, internal("failed to list generations", err)
	}
	if records == nil {
		records = []*model.GenerationRecord{}
	}

	pages := (total + int64(limit) - 1) / int64(limit)
	return &HistoryPage{
		Records: records,
		Total:   total,
		Page:    page,
		Pages:   pages,
		Limit:   limit,
	}, nil
}

// GetGeneration returns one of the account's records.
func (s *GenerationService) GetGeneration(ctx context.Context, accountID, id string) (*model.GenerationRecord, error) {
	record, err := s.store.GetGeneration(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrGenerationNotFound) {
			return nil, newError(KindNotFound, "generation not found", err)
		}
		return nil, internal("failed to load generation", err)
	}
	return record, nil
}
