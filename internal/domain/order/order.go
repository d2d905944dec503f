// Package order implements the order lifecycle: creating orders, moving them
// through the status table and managing their line items. Every mutation runs
// in one store transaction and every entry point consults the policy package.
package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusReceived       Status = "RECEIVED"
	StatusPreparation    Status = "PREPARATION"
	StatusWaitingPayment Status = "WAITING_PAYMENT"
	StatusDelivery       Status = "DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusFinished       Status = "FINISHED"
	StatusCanceled       Status = "CANCELED"
)

// next lists the documented edges of the status table. Staff may force any
// edge out of a non-terminal status; the table is what CanTransition reports.
var next = map[Status][]Status{
	StatusReceived:       {StatusPreparation, StatusWaitingPayment, StatusCanceled},
	StatusPreparation:    {StatusDelivery, StatusCanceled},
	StatusWaitingPayment: {StatusPreparation, StatusCanceled},
	StatusDelivery:       {StatusDelivered, StatusCanceled},
	StatusDelivered:      {StatusFinished},
	StatusFinished:       nil,
	StatusCanceled:       nil,
}

// Statuses returns every status in table order.
func Statuses() []Status {
	return []Status{
		StatusReceived, StatusPreparation, StatusWaitingPayment,
		StatusDelivery, StatusDelivered, StatusFinished, StatusCanceled,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := next[s]
	return ok
}

// Terminal reports whether s never transitions further.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCanceled
}

// ItemsMutable reports whether items may be created, updated or deleted
// while the order is in s.
func (s Status) ItemsMutable() bool {
	return s == StatusReceived
}

// CanTransition reports whether to is a documented next state of s.
func (s Status) CanTransition(to Status) bool {
	for _, n := range next[s] {
		if n == to {
			return true
		}
	}
	return false
}

// PaymentMethod records how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentBankSlip   PaymentMethod = "BANK_SLIP"
	PaymentPix        PaymentMethod = "PIX"
	PaymentCash       PaymentMethod = "CASH"
)

// PaymentMethods returns every accepted payment method.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCreditCard, PaymentDebitCard, PaymentBankSlip, PaymentPix, PaymentCash}
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentDebitCard, PaymentBankSlip, PaymentPix, PaymentCash:
		return true
	}
	return false
}

// Order is a customer order. Number is zero until the creating transaction
// assigns it from ID.
type Order struct {
	ID            int64
	UUID          uuid.UUID
	Number        int64
	UserID        int64
	AddressID     int64
	PaymentMethod PaymentMethod
	Status        Status
	OrderDate     time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item is a line of an order. UnitPrice is the product price at insertion.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

var (
	// ErrNotFound is returned when an order does not exist, is inactive, or
	// belongs to another user.
	ErrNotFound = errors.New("order not found")
	// ErrItemNotFound is returned when the order has no item for the product.
	ErrItemNotFound = errors.New("order item not found")
	// ErrItemExists is returned by stores when the (order, product) pair is taken.
	ErrItemExists = errors.New("order item already exists")
)

// InvalidStateError is returned when an operation is not allowed in the
// order's current status.
type InvalidStateError struct {
	Status Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("order cannot %s at '%s' status", e.Op, e.Status)
}

// DuplicateItemError is returned when a product is added twice to one order.
type DuplicateItemError struct {
	ProductUUID uuid.UUID
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("product %s is already in the order, update its quantity instead", e.ProductUUID)
}
