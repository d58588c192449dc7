package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/tickethub/helpdesk-api/internal/domain"
)

type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

func (req *CreateTicketRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Subject, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Required),
		validation.Field(&req.Priority, validation.In(
			domain.TicketPriorityLow,
			domain.TicketPriorityMedium,
			domain.TicketPriorityHigh,
			domain.TicketPriorityCritical,
		)),
		validation.Field(&req.Category, validation.Length(0, 100)),
	)
}

type RespondTicketRequest struct {
	Response string `json:"response"`
	Close    bool   `json:"close"`
}

func (req *RespondTicketRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Response, validation.Required),
	)
}
