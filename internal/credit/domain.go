package credit

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TransferInput moves credit from one user to another. Amount is
// always positive; the engine derives the two signed legs.
type TransferInput struct {
	SenderID   int64
	ReceiverID int64
	Amount     decimal.Decimal
	Message    string
}

// ChangeInput tops up or withdraws a user's own credit. Amount is
// signed: positive deposits, negative withdraws.
type ChangeInput struct {
	UserID  int64
	Amount  decimal.Decimal
	Message string
}

// ErrGuestCredit indicates a guest trying to operate on credit.
var ErrGuestCredit = errors.New("credit: guests carry no credit")

// ErrSelfTransfer indicates sender and receiver are the same user.
var ErrSelfTransfer = errors.New("credit: cannot transfer to yourself")

// ErrInsufficientCredit indicates the balance cannot cover the delta.
var ErrInsufficientCredit = errors.New("credit: insufficient credit")

// ErrInvalidAmount indicates a non-positive transfer amount.
var ErrInvalidAmount = errors.New("credit: amount must be positive")
