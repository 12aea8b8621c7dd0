package mongo

import (
	"time"

	"github.com/inkwell/inkwell/internal/model"
)

type accountModel struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Email         string    `bson:"email"`
	PasswordHash  string    `bson:"password_hash"`
	Plan          string    `bson:"plan"`
	CreditBalance int64     `bson:"credit_balance"`
	CreditCeiling int64     `bson:"credit_ceiling"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toAccountModel(a *model.Account) *accountModel {
	return &accountModel{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		PasswordHash:  a.PasswordHash,
		Plan:          string(a.Plan),
		CreditBalance: a.CreditBalance,
		CreditCeiling: a.CreditCeiling,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) *model.Account {
	return &model.Account{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Plan:          model.PlanID(m.Plan),
		CreditBalance: m.CreditBalance,
		CreditCeiling: m.CreditCeiling,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type tokenModel struct {
	ID          string     `bson:"_id"`
	AccountID   string     `bson:"account_id"`
	TokenHash   string     `bson:"token_hash"`
	TokenPrefix string     `bson:"token_prefix"`
	Scopes      []string   `bson:"scopes"`
	Name        string     `bson:"name"`
	ExpiresAt   *time.Time `bson:"expires_at,omitempty"`
	RevokedAt   *time.Time `bson:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `bson:"last_used_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func toTokenModel(t *model.AccessToken) *tokenModel {
	return &tokenModel{
		ID:          t.ID,
		AccountID:   t.AccountID,
		TokenHash:   t.TokenHash,
		TokenPrefix: t.TokenPrefix,
		Scopes:      t.Scopes,
		Name:        t.Name,
		ExpiresAt:   t.ExpiresAt,
		RevokedAt:   t.RevokedAt,
		LastUsedAt:  t.LastUsedAt,
		CreatedAt:   t.CreatedAt,
	}
}

func fromTokenModel(m *tokenModel) *model.AccessToken {
	return &model.AccessToken{
		ID:          m.ID,
		AccountID:   m.AccountID,
		TokenHash:   m.TokenHash,
		TokenPrefix: m.TokenPrefix,
		Scopes:      m.Scopes,
		Name:        m.Name,
		ExpiresAt:   m.ExpiresAt,
		RevokedAt:   m.RevokedAt,
		LastUsedAt:  m.LastUsedAt,
		CreatedAt:   m.CreatedAt,
	}
}

// generationModel keeps form fields as parallel arrays; BSON documents do not
// guarantee key order through every driver path.
type generationModel struct {
	ID           string    `bson:"_id"`
	AccountID    string    `bson:"account_id"`
	TemplateSlug string    `bson:"template_slug"`
	TemplateName string    `bson:"template_name"`
	FieldKeys    []string  `bson:"field_keys"`
	FieldValues  []string  `bson:"field_values"`
	OutputText   string    `bson:"output_text"`
	OutputLength int64     `bson:"output_length"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toGenerationModel(r *model.GenerationRecord) *generationModel {
	keys, values := r.InputFields.Columns()
	return &generationModel{
		ID:           r.ID,
		AccountID:    r.AccountID,
		TemplateSlug: r.TemplateSlug,
		TemplateName: r.TemplateName,
		FieldKeys:    keys,
		FieldValues:  values,
		OutputText:   r.OutputText,
		OutputLength: r.OutputLength,
		CreatedAt:    r.CreatedAt,
	}
}

func fromGenerationModel(m *generationModel) (*model.GenerationRecord, error) {
	fields, err := model.FieldsFromColumns(m.FieldKeys, m.FieldValues)
	if err != nil {
		return nil, err
	}
	return &model.GenerationRecord{
		ID:           m.ID,
		AccountID:    m.AccountID,
		TemplateSlug: m.TemplateSlug,
		TemplateName: m.TemplateName,
		InputFields:  fields,
		OutputText:   m.OutputText,
		OutputLength: m.OutputLength,
		CreatedAt:    m.CreatedAt,
	}, nil
}

type paymentModel struct {
	OrderID   string    `bson:"_id"`
	PaymentID string    `bson:"payment_id"`
	AccountID string    `bson:"account_id"`
	PlanID    string    `bson:"plan_id"`
	Credits   int64     `bson:"credits"`
	AppliedAt time.Time `bson:"applied_at"`
}

func toPaymentModel(p *model.Payment) *paymentModel {
	return &paymentModel{
		OrderID:   p.OrderID,
		PaymentID: p.PaymentID,
		AccountID: p.AccountID,
		PlanID:    string(p.PlanID),
		Credits:   p.Credits,
		AppliedAt: p.AppliedAt,
	}
}
