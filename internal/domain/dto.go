package domain

type OrderStatusType string

const (
	OrderStatusPending OrderStatusType = "PENDING"
	OrderStatusPaid    OrderStatusType = "PAID"
)

// CreditOutcome итог проверки оплаты заказа.
type CreditOutcome string

const (
	CreditOutcomeCredited        CreditOutcome = "credited"
	CreditOutcomeAlreadyCredited CreditOutcome = "already_credited"
	CreditOutcomeNotPaid         CreditOutcome = "not_paid"
)
