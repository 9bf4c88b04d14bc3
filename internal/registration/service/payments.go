package service

import (
	"context"
	"time"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

// RecordPayment materializes a confirmed payment: the history entry goes in
// first, then the payment row, both in one transaction. Payments bypass the
// status rule set entirely; money movement is recorded regardless of the
// registration's lifecycle state.
func (s *Service) RecordPayment(ctx context.Context, registrationID id.RegistrationID, amount int64, currencyCode string, receipt models.Receipt, actorUserID id.UserID) (*models.Registration, error) {
	start := s.now()
	defer func() { s.metrics.ObserveOperation("record_payment", time.Since(start)) }()

	if receipt == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment requires a receipt")
	}

	var reg *models.Registration
	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		reg, err = s.store.Get(txCtx, registrationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "registration not found")
		}
		payment := reg.RecordPayment(amount, currencyCode, receipt, actorUserID, s.now())
		if err := s.store.AppendHistory(txCtx, reg.ID, reg.History[len(reg.History)-1]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append payment history")
		}
		if err := s.store.AppendPayment(txCtx, reg.ID, *payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObservePayment("payment")
	s.logger.InfoContext(ctx, "payment recorded",
		"registration_id", reg.ID,
		"amount", amount,
		"currency", currencyCode,
	)
	s.postSave(ctx, reg, "payment")
	s.considerAutoClose(ctx, reg)
	return reg, nil
}

// RecordRefund links a refund to the payment being reversed and stores the
// amount negated, so the net paid total is a plain sum over the ledger.
func (s *Service) RecordRefund(ctx context.Context, registrationID id.RegistrationID, amount int64, currencyCode string, receipt models.Receipt, refundedPaymentID id.PaymentID, actorUserID id.UserID) (*models.Registration, error) {
	start := s.now()
	defer func() { s.metrics.ObserveOperation("record_refund", time.Since(start)) }()

	if receipt == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "refund requires a receipt")
	}

	var reg *models.Registration
	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		reg, err = s.store.Get(txCtx, registrationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "registration not found")
		}
		if !hasPayment(reg, refundedPaymentID) {
			return dErrors.New(dErrors.CodeInvalidInput, "refunded payment does not belong to this registration")
		}
		payment := reg.RecordRefund(amount, currencyCode, receipt, refundedPaymentID, actorUserID, s.now())
		if err := s.store.AppendHistory(txCtx, reg.ID, reg.History[len(reg.History)-1]); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append refund history")
		}
		if err := s.store.AppendPayment(txCtx, reg.ID, *payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append refund")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObservePayment("refund")
	s.logger.InfoContext(ctx, "refund recorded",
		"registration_id", reg.ID,
		"amount", amount,
		"currency", currencyCode,
		"refunded_payment_id", refundedPaymentID,
	)
	s.postSave(ctx, reg, "refund")
	s.considerAutoClose(ctx, reg)
	return reg, nil
}

func hasPayment(reg *models.Registration, paymentID id.PaymentID) bool {
	for _, payment := range reg.Payments {
		if payment.ID == paymentID {
			return true
		}
	}
	return false
}

// considerAutoClose triggers the competition's own auto-close check once the
// outstanding balance hits zero. Whether registration actually closes is the
// competition system's call; a failed check is logged, not propagated, since
// the ledger write is already committed.
func (s *Service) considerAutoClose(ctx context.Context, reg *models.Registration) {
	competition, err := s.competitions.Get(ctx, reg.CompetitionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "auto-close check skipped, competition load failed",
			"competition_id", reg.CompetitionID,
			"error", err,
		)
		return
	}
	if reg.OutstandingEntryFees(competition).IsPositive() {
		return
	}
	if err := s.competitions.AttemptAutoClose(ctx, reg.CompetitionID); err != nil {
		s.logger.ErrorContext(ctx, "auto-close attempt failed",
			"competition_id", reg.CompetitionID,
			"error", err,
		)
	}
}
