package credit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
)

// CanPay reports whether applying the signed delta would keep the
// user's balance non-negative. Guests always pass: they bypass credit
// tracking entirely.
func CanPay(user ledger.UserAccount, delta decimal.Decimal) bool {
	if user.IsGuest {
		return true
	}
	return user.Credit.Add(delta).Sign() >= 0
}

// Service applies credit deltas against the ledger. Every mutation is
// a balance update plus an appended audit entry in one transaction.
type Service struct {
	store ledger.Store
}

// NewService builds Service.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// Apply adjusts the user's balance by delta inside an already open
// transaction. Guests are a silent no-op. The balance update and the
// log row land together or not at all.
func (s *Service) Apply(ctx context.Context, tx ledger.Tx, userID int64, delta decimal.Decimal, isPurchase bool, message string) error {
	user, err := tx.UserForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsGuest {
		return nil
	}
	_, err = tx.AppendCreditEntry(ctx, ledger.CreditEntry{
		UserID:     userID,
		Price:      delta,
		IsPurchase: isPurchase,
		Message:    message,
	})
	return err
}

// Change tops up or withdraws the user's own credit. Withdrawals are
// bounded by the current balance; guests are rejected.
func (s *Service) Change(ctx context.Context, input ChangeInput) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		user, err := tx.UserForUpdate(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user.IsGuest {
			return ErrGuestCredit
		}
		if !CanPay(user, input.Amount) {
			return ErrInsufficientCredit
		}
		_, err = tx.AppendCreditEntry(ctx, ledger.CreditEntry{
			UserID:  input.UserID,
			Price:   input.Amount,
			Message: input.Message,
		})
		return err
	})
}

// Transfer moves credit between two users as two offsetting entries in
// one transaction: a negative leg for the sender, a positive one for
// the receiver. On insufficient funds neither leg is applied.
func (s *Service) Transfer(ctx context.Context, input TransferInput) error {
	if input.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if input.SenderID == input.ReceiverID {
		return ErrSelfTransfer
	}
	return s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		sender, err := tx.UserForUpdate(ctx, input.SenderID)
		if err != nil {
			return err
		}
		receiver, err := tx.UserForUpdate(ctx, input.ReceiverID)
		if err != nil {
			return err
		}
		if sender.IsGuest || receiver.IsGuest {
			return ErrGuestCredit
		}
		if !CanPay(sender, input.Amount.Neg()) {
			return ErrInsufficientCredit
		}
		message := fmt.Sprintf("%s: %s", sender.Username, input.Message)
		if _, err := tx.AppendCreditEntry(ctx, ledger.CreditEntry{
			UserID:  input.SenderID,
			Price:   input.Amount.Neg(),
			Message: message,
		}); err != nil {
			return err
		}
		_, err = tx.AppendCreditEntry(ctx, ledger.CreditEntry{
			UserID:  input.ReceiverID,
			Price:   input.Amount,
			Message: message,
		})
		return err
	})
}

// TotalCredit sums every user's balance, for statistics only.
func (s *Service) TotalCredit(ctx context.Context) (decimal.Decimal, error) {
	return s.store.TotalCredit(ctx)
}
