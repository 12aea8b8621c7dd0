package dto

import (
	"time"

	"github.com/inkwell/inkwell/internal/catalog"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/service"
)

// GenerateRequest is the body of POST /api/v1/generate.
// AIPrompt may be omitted when TemplateSlug names a built-in template.
type GenerateRequest struct {
	TemplateSlug  string              `json:"template_slug" validate:"required,max=100"`
	TemplateName  string              `json:"template_name" validate:"required,max=200"`
	FormData      model.Fields        `json:"form_data"`
	AIPrompt      string              `json:"ai_prompt" validate:"max=10000"`
	ComponentType model.ComponentType `json:"component_type" validate:"omitempty,oneof=instagram-post blog-post twitter-post seo-content"`
}

// GenerationResponse is a stored generation record.
type GenerationResponse struct {
	ID           string       `json:"id"`
	TemplateSlug string       `json:"template_slug"`
	TemplateName string       `json:"template_name"`
	InputFields  model.Fields `json:"input_fields"`
	OutputText   string       `json:"output_text"`
	OutputLength int64        `json:"output_length"`
	CreatedAt    time.Time    `json:"created_at"`
}

// GenerateResponse pairs the new record with the post-debit quota.
type GenerateResponse struct {
	Generation    GenerationResponse `json:"generation"`
	CreditBalance int64              `json:"credit_balance"`
	CreditCeiling int64              `json:"credit_ceiling"`
}

// HistoryResponse is one page of GET /api/v1/history.
type HistoryResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Pagination  Pagination           `json:"pagination"`
}

// Pagination describes a page position.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// TemplateListResponse is the body of GET /api/v1/templates.
type TemplateListResponse struct {
	Templates  []catalog.Template `json:"templates"`
	Categories []string           `json:"categories"`
}

// ToGenerationResponse converts a record to its response form.
func ToGenerationResponse(r *model.GenerationRecord) GenerationResponse {
	return GenerationResponse{
		ID:           r.ID,
		TemplateSlug: r.TemplateSlug,
		TemplateName: r.TemplateName,
		InputFields:  r.InputFields,
		OutputText:   r.OutputText,
		OutputLength: r.OutputLength,
		CreatedAt:    r.CreatedAt,
	}
}

// ToGenerateResponse converts a generation result.
func ToGenerateResponse(out *service.GenerateOutput) GenerateResponse {
	return GenerateResponse{
		Generation:    ToGenerationResponse(out.Record),
		CreditBalance: out.CreditBalance,
		CreditCeiling: out.CreditCeiling,
	}
}

// ToHistoryResponse converts a history page.
func ToHistoryResponse(page *service.HistoryPage) HistoryResponse {
	generations := make([]GenerationResponse, len(page.Records))
	for i, r := range page.Records {
		generations[i] = ToGenerationResponse(r)
	}
	return HistoryResponse{
		Generations: generations,
		Pagination: Pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	}
}
