package invoice

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Input is the wire form of a new invoice, with dates as YYYY-MM-DD strings.
type Input struct {
	ID               string   `json:"id,omitempty" yaml:"id,omitempty"`
	Amount           float64  `json:"amount" yaml:"amount" validate:"gt=0"`
	Type             string   `json:"type" yaml:"type" validate:"required,oneof=AR AP ar ap"`
	IssueDate        string   `json:"issueDate" yaml:"issueDate" validate:"required,datetime=2006-01-02"`
	DueDate          string   `json:"dueDate" yaml:"dueDate" validate:"required,datetime=2006-01-02"`
	EntityID         string   `json:"entityId" yaml:"entityId" validate:"required"`
	EarlyPaymentDate string   `json:"earlyPaymentDate,omitempty" yaml:"earlyPaymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DiscountRate     *float64 `json:"discountRate,omitempty" yaml:"discountRate,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Build validates the input and converts it into an Invoice. A missing ID is
// replaced with a generated one.
func (in Input) Build() (Invoice, error) {
	if err := validate.Struct(in); err != nil {
		return Invoice{}, translate(err)
	}

	typ, err := ParseType(in.Type)
	if err != nil {
		return Invoice{}, err
	}
	issue, err := datetime.ParseDate(in.IssueDate)
	if err != nil {
		return Invoice{}, validation.Errorf("issueDate", "date must be in YYYY-MM-DD format")
	}
	due, err := datetime.ParseDate(in.DueDate)
	if err != nil {
		return Invoice{}, validation.Errorf("dueDate", "date must be in YYYY-MM-DD format")
	}
	if due.Before(issue) {
		return Invoice{}, validation.Errorf("dueDate", "due date %s is before issue date %s", in.DueDate, in.IssueDate)
	}

	inv := Invoice{
		ID:        strings.TrimSpace(in.ID),
		Amount:    in.Amount,
		Type:      typ,
		IssueDate: issue,
		DueDate:   due,
		EntityID:  in.EntityID,
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	hasDate := in.EarlyPaymentDate != ""
	hasRate := in.DiscountRate != nil
	if hasDate != hasRate {
		return Invoice{}, validation.Errorf("earlyPaymentDate", "early payment date and discount rate must be given together")
	}
	if hasDate {
		early, err := datetime.ParseDate(in.EarlyPaymentDate)
		if err != nil {
			return Invoice{}, validation.Errorf("earlyPaymentDate", "date must be in YYYY-MM-DD format")
		}
		if early.Before(issue) || early.After(due) {
			return Invoice{}, validation.Errorf("earlyPaymentDate", "early payment date must be between issue date and due date")
		}
		rate := *in.DiscountRate
		inv.EarlyPaymentDate = &early
		inv.DiscountRate = &rate
	}

	return inv, nil
}

// ToInput renders an Invoice back into its wire form.
func ToInput(inv Invoice) Input {
	in := Input{
		ID:        inv.ID,
		Amount:    inv.Amount,
		Type:      string(inv.Type),
		IssueDate: datetime.FormatDate(inv.IssueDate),
		DueDate:   datetime.FormatDate(inv.DueDate),
		EntityID:  inv.EntityID,
	}
	if inv.HasDiscount() {
		rate := *inv.DiscountRate
		in.EarlyPaymentDate = datetime.FormatDate(*inv.EarlyPaymentDate)
		in.DiscountRate = &rate
	}
	return in
}

func translate(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validation.Errorf("", "invalid invoice: %v", err)
	}
	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return validation.Errorf(field, "is required")
	case "datetime":
		return validation.Errorf(field, "date must be in YYYY-MM-DD format")
	case "gt":
		return validation.Errorf(field, "must be positive")
	case "gte", "lte":
		return validation.Errorf(field, "must be between 0 and 1")
	case "oneof":
		return validation.Errorf(field, "invoice type must be AR or AP, got %q", fmt.Sprint(fe.Value()))
	}
	return validation.Errorf(field, "failed %s validation", fe.Tag())
}
