package receivables

import (
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

// ActionType names a collection action.
type ActionType string

// Collection actions.
const (
	ReminderEmail        ActionType = "reminder_email"
	PhoneCall            ActionType = "phone_call"
	PersonalVisit        ActionType = "personal_visit"
	EarlyPaymentDiscount ActionType = "early_payment_discount"
	LatePaymentPenalty   ActionType = "late_payment_penalty"
	CollectionAgency     ActionType = "collection_agency"
)

// actionProfile is the fixed cost and behaviour of an action kind. Cost is a
// flat amount; percentage-based costs are computed per invoice.
type actionProfile struct {
	cost               float64
	effectiveness      float64
	relationshipImpact float64
	// accelerationDays is how much sooner the action is expected to bring
	// the payment in.
	accelerationDays int
}

var profiles = map[ActionType]actionProfile{
	ReminderEmail:        {cost: 1, effectiveness: 0.3, relationshipImpact: -0.1, accelerationDays: 2},
	PhoneCall:            {cost: 10, effectiveness: 0.5, relationshipImpact: -0.3, accelerationDays: 5},
	PersonalVisit:        {cost: 50, effectiveness: 0.7, relationshipImpact: -0.5, accelerationDays: 10},
	EarlyPaymentDiscount: {cost: 0, effectiveness: 0.6, relationshipImpact: 0.2, accelerationDays: 15},
	LatePaymentPenalty:   {cost: 0, effectiveness: 0.4, relationshipImpact: -0.6, accelerationDays: 3},
	CollectionAgency:     {cost: 0, effectiveness: 0.8, relationshipImpact: -0.9, accelerationDays: 20},
}

const (
	agencyFeeRate          = 0.25
	agencyRecoveryRate     = 0.8
	agencyImportanceCutoff = 0.4
	penaltyImportanceLimit = 0.7
	// penaltyMonthlyRate is a 2% monthly late fee. The expected benefit
	// counts one month of it, however long the invoice has been overdue.
	penaltyMonthlyRate = 0.02
	offeredDiscountRate    = 0.01
	courtesyReminderWindow = 7
	courtesyBenefitRate    = 0.2
	courtesyImpact         = -0.05
	discountMinPriority    = 70
	discountMinAmount      = 10000
	// overdueCollectionDays is the assumed wait for an overdue invoice
	// nobody chases.
	overdueCollectionDays = 30
)

// Action is one recommended collection step.
type Action struct {
	Type               ActionType `json:"type" yaml:"type"`
	Timing             string     `json:"timing" yaml:"timing"`
	Cost               float64    `json:"cost" yaml:"cost"`
	ExpectedBenefit    float64    `json:"expected_benefit" yaml:"expected_benefit"`
	RelationshipImpact float64    `json:"relationship_impact" yaml:"relationship_impact"`
	Score              float64    `json:"score" yaml:"score"`
}

// Objective selects how collection actions are weighed.
type Objective string

// Objectives.
const (
	ObjectiveCashFlow     Objective = "cash_flow"
	ObjectiveRelationship Objective = "relationship"
	ObjectiveBalanced     Objective = "balanced"
)

// ParseObjective maps an empty string to ObjectiveBalanced.
func ParseObjective(value string) (Objective, error) {
	switch o := Objective(strings.ToLower(strings.TrimSpace(value))); o {
	case "":
		return ObjectiveBalanced, nil
	case ObjectiveCashFlow, ObjectiveRelationship, ObjectiveBalanced:
		return o, nil
	}
	return "", validation.Errorf("objective", "objective must be cash_flow, relationship or balanced, got %q", value)
}

// Weights trade off the three collection goals.
type Weights struct {
	CashAcceleration float64 `json:"cash_acceleration" yaml:"cash_acceleration"`
	Relationship     float64 `json:"relationship" yaml:"relationship"`
	Cost             float64 `json:"cost" yaml:"cost"`
}

// Weights returns the fixed weight triple for the objective. Unknown values
// weigh like ObjectiveBalanced.
func (o Objective) Weights() Weights {
	switch o {
	case ObjectiveCashFlow:
		return Weights{CashAcceleration: 0.7, Relationship: 0.1, Cost: 0.2}
	case ObjectiveRelationship:
		return Weights{CashAcceleration: 0.3, Relationship: 0.6, Cost: 0.1}
	default:
		return Weights{CashAcceleration: 0.5, Relationship: 0.3, Cost: 0.2}
	}
}

// Score weighs an action. Relationship impact lives in [-1,1], so it is
// scaled to be comparable with currency amounts.
func (w Weights) Score(a Action) float64 {
	return w.CashAcceleration*a.ExpectedBenefit +
		w.Relationship*a.RelationshipImpact*1000 -
		w.Cost*a.Cost
}

// SelectActions picks the collection actions for one invoice and returns them
// best score first. An empty result means no action is worth taking.
func SelectActions(p Prioritized, customerImportance float64, weights Weights) []Action {
	amount := p.Invoice.Amount
	overdue := p.DaysOverdue

	standard := func(t ActionType, timing string) Action {
		profile := profiles[t]
		return Action{
			Type:               t,
			Timing:             timing,
			Cost:               profile.cost,
			ExpectedBenefit:    amount * profile.effectiveness,
			RelationshipImpact: profile.relationshipImpact * customerImportance,
		}
	}

	var actions []Action
	switch {
	case overdue > 90:
		if customerImportance < agencyImportanceCutoff {
			profile := profiles[CollectionAgency]
			actions = append(actions, Action{
				Type:               CollectionAgency,
				Timing:             "immediately",
				Cost:               amount * agencyFeeRate,
				ExpectedBenefit:    amount * agencyRecoveryRate * profile.effectiveness,
				RelationshipImpact: profile.relationshipImpact,
			})
		} else {
			actions = append(actions, standard(PersonalVisit, "immediately"))
		}
	case overdue > 60:
		actions = append(actions, standard(PhoneCall, "immediately"))
		if customerImportance < penaltyImportanceLimit {
			penalty := standard(LatePaymentPenalty, "immediately")
			penalty.ExpectedBenefit = amount * penaltyMonthlyRate
			actions = append(actions, penalty)
		}
	case overdue > 30:
		actions = append(actions,
			standard(ReminderEmail, "immediately"),
			standard(PhoneCall, "3_days_after_reminder"),
		)
	case overdue > 0:
		actions = append(actions, standard(ReminderEmail, "immediately"))
	case -overdue < courtesyReminderWindow:
		actions = append(actions, Action{
			Type:               ReminderEmail,
			Timing:             "immediately",
			Cost:               profiles[ReminderEmail].cost,
			ExpectedBenefit:    amount * courtesyBenefitRate,
			RelationshipImpact: courtesyImpact,
		})
	case p.Priority > discountMinPriority && amount > discountMinAmount:
		profile := profiles[EarlyPaymentDiscount]
		actions = append(actions, Action{
			Type:               EarlyPaymentDiscount,
			Timing:             "offer_immediately",
			Cost:               amount * offeredDiscountRate,
			ExpectedBenefit:    amount * (1 - offeredDiscountRate) * profile.effectiveness,
			RelationshipImpact: profile.relationshipImpact,
		})
	}

	for i := range actions {
		actions[i].Score = weights.Score(actions[i])
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Score > actions[j].Score
	})
	return actions
}

// ExpectedCollectionDate estimates when the invoice will be paid once the
// actions are carried out.
func ExpectedCollectionDate(due, today time.Time, actions []Action) time.Time {
	if len(actions) == 0 {
		return datetime.MaxDate(today, due)
	}

	reduction := 0
	for _, a := range actions {
		reduction += profiles[a.Type].accelerationDays
	}

	if due.Before(today) {
		wait := overdueCollectionDays - reduction
		if wait < 1 {
			wait = 1
		}
		return datetime.AddDays(today, wait)
	}
	return datetime.MaxDate(today, datetime.AddDays(due, -reduction))
}

// FinancialImpact is the borrowing cost avoided by collecting before the due
// date. Collection on or after the due date is worth nothing.
func FinancialImpact(amount float64, due, expected time.Time, borrowingRate float64) float64 {
	if !expected.Before(due) {
		return 0
	}
	return amount * borrowingRate * float64(datetime.DaysBetween(expected, due))
}
