// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/payout"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/internal/apperrors"
	"github.com/printforge/printforge-backend/internal/config"
	"github.com/printforge/printforge-backend/internal/database"
	"github.com/printforge/printforge-backend/internal/models"
)

// PaymentService is the fiat boundary. Stripe payment intents fund wallet
// credits on confirmation; withdrawals debit the wallet and initiate a
// Stripe payout. Everything inside the ledger runs on credits only.
type PaymentService struct {
	db       *gorm.DB
	config   *config.Config
	treasury *TreasuryService
}

type CreateDepositIntentRequest struct {
	Amount   int64  `json:"amount" validate:"required,min=100"` // in cents, one cent per credit
	Currency string `json:"currency,omitempty"`
}

type DepositIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

type ConfirmDepositRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type WithdrawRequest struct {
	Amount int64 `json:"amount" validate:"required,min=1"` // in credits
}

func NewPaymentService(db *gorm.DB, config *config.Config, treasury *TreasuryService) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:       db,
		config:   config,
		treasury: treasury,
	}
}

// CreateDepositIntent opens a Stripe payment intent for funding the wallet.
// Nothing is credited until confirmation.
func (s *PaymentService) CreateDepositIntent(userID uuid.UUID, req *CreateDepositIntentRequest) (*DepositIntentResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("purpose", "wallet_deposit")

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to create payment intent")
	}

	return &DepositIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmDeposit checks the payment intent with Stripe and credits the
// wallet once it has succeeded. The intent's metadata must name the caller,
// and an intent can only be redeemed once.
func (s *PaymentService) ConfirmDeposit(userID uuid.UUID, req *ConfirmDepositRequest) (int64, error) {
	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return 0, apperrors.Internal(err, "failed to look up payment intent")
	}

	if pi.Metadata["user_id"] != userID.String() {
		return 0, apperrors.Unauthorized("payment intent does not belong to the caller")
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return 0, apperrors.InvalidState("payment intent %s has status %s", pi.ID, pi.Status)
	}

	credited := pi.Amount
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var existing models.WalletEntry
		err := tx.Where("reference = ?", depositReference(pi.ID)).First(&existing).Error
		if err == nil {
			return apperrors.InvalidState("payment intent %s has already been redeemed", pi.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Internal(err, "failed to check deposit history")
		}

		return s.treasury.Credit(tx, userID, credited, models.WalletEntryDeposit, depositReference(pi.ID))
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  credited,
		"intent":  pi.ID,
	}).Info("Wallet deposit confirmed")

	return credited, nil
}

// Withdraw debits the wallet and initiates a Stripe payout. The debit
// happens first inside the transaction; a payout failure rolls it back.
func (s *PaymentService) Withdraw(userID uuid.UUID, req *WithdrawRequest) error {
	if req.Amount < s.config.Payment.MinimumWithdrawal {
		return apperrors.InvalidArgument("minimum withdrawal is %d credits", s.config.Payment.MinimumWithdrawal)
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.treasury.Debit(tx, userID, req.Amount, models.WalletEntryWithdrawal,
			fmt.Sprintf("withdrawal:%s", userID)); err != nil {
			return err
		}

		params := &stripe.PayoutParams{
			Amount:   stripe.Int64(req.Amount),
			Currency: stripe.String("usd"),
		}
		params.AddMetadata("user_id", userID.String())

		if _, err := payout.New(params); err != nil {
			return apperrors.Internal(err, "failed to initiate payout")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  req.Amount,
	}).Info("Withdrawal initiated")

	return nil
}

// Balance returns the wallet balance through the treasury.
func (s *PaymentService) Balance(userID uuid.UUID) (int64, error) {
	return s.treasury.Balance(userID)
}

// History returns the wallet movement log through the treasury.
func (s *PaymentService) History(userID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	return s.treasury.History(userID, limit)
}

func depositReference(intentID string) string {
	return fmt.Sprintf("deposit:%s", intentID)
}
