package handler

import (
	"log/slog"
	"net/http"

	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/middleware"
	"github.com/inkwell/inkwell/internal/service"
)

type errorMapping struct {
	status int
	code   string
}

// errorMappings assigns every service.Kind its HTTP status and machine code.
var errorMappings = map[service.Kind]errorMapping{
	service.KindInternal:           {http.StatusInternalServerError, "INTERNAL_ERROR"},
	service.KindInvalidInput:       {http.StatusBadRequest, "INVALID_INPUT"},
	service.KindNotFound:           {http.StatusNotFound, "NOT_FOUND"},
	service.KindQuotaExhausted:     {http.StatusForbidden, "QUOTA_EXHAUSTED"},
	service.KindGeneration:         {http.StatusInternalServerError, "GENERATION_FAILED"},
	service.KindInvalidPlan:        {http.StatusBadRequest, "INVALID_PLAN"},
	service.KindPaymentUnavailable: {http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE"},
	service.KindPaymentGateway:     {http.StatusBadGateway, "PAYMENT_GATEWAY_ERROR"},
	service.KindInvalidSignature:   {http.StatusBadRequest, "INVALID_SIGNATURE"},
	service.KindOrderMismatch:      {http.StatusBadRequest, "ORDER_MISMATCH"},
	service.KindEmailTaken:         {http.StatusConflict, "EMAIL_TAKEN"},
	service.KindInvalidCredentials: {http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	service.KindAccountBusy:        {http.StatusConflict, "ACCOUNT_BUSY"},
	service.KindPaymentApplied:     {http.StatusConflict, "PAYMENT_ALREADY_APPLIED"},
}

// Responder writes service errors as API error responses.
type Responder struct {
	logger      *slog.Logger
	development bool
}

// NewResponder creates a Responder. In development, responses carry the
// underlying error text in a detail field.
func NewResponder(logger *slog.Logger, development bool) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{logger: logger, development: development}
}

// Logger returns the responder's logger.
func (rs *Responder) Logger() *slog.Logger {
	return rs.logger
}

// ServiceError maps err to its status and writes the error envelope.
// Internal messages are only exposed as detail in development.
func (rs *Responder) ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	m, ok := errorMappings[kind]
	if !ok {
		m = errorMappings[service.KindInternal]
	}

	message := service.MessageOf(err)
	if m.status >= http.StatusInternalServerError {
		rs.logger.Error("request_failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
		if kind == service.KindInternal {
			message = "An internal error occurred"
		}
	}

	var detail string
	if rs.development {
		detail = err.Error()
	}
	writeJSON(w, m.status, dto.NewErrorResponse(m.code, message, detail))
}
