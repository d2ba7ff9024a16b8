package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/pix-engine/internal/domain/payment"
	"github.com/meridianbank/pix-engine/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayment() *payment.Payment {
	now := time.Now()
	return &payment.Payment{
		ID:          uuid.New(),
		EndToEndID:  "E99999010202608301300fedcba54321",
		WalletID:    uuid.New(),
		Amount:      2500,
		Owner:       shared.Participant{Name: "Owner", Document: "12345678901", BankISPB: "99999010"},
		Beneficiary: shared.Participant{Name: "Beneficiary", Document: "10987654321", BankISPB: "11111111"},
		Description: "rent",
		Priority:    payment.PriorityNormal,
		State:       payment.StateWaiting,
		OperationID: uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

const paymentSelectPattern = `SELECT id, end_to_end_id, wallet_id, amount, owner, beneficiary, description, priority, state, payment_date, operation_id, failed_code, failed_message, created_at, updated_at`

func paymentRows(payments ...*payment.Payment) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "end_to_end_id", "wallet_id", "amount", "owner", "beneficiary", "description", "priority", "state", "payment_date", "operation_id", "failed_code", "failed_message", "created_at", "updated_at"})
	for _, p := range payments {
		rows.AddRow(p.ID, p.EndToEndID, p.WalletID, p.Amount, p.Owner, p.Beneficiary, p.Description, p.Priority, p.State, p.PaymentDate, p.OperationID, p.FailedCode, p.FailedMessage, p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func TestPaymentRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := testPayment()

	query := `INSERT INTO payments`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.ID, p.EndToEndID, p.WalletID, p.Amount, p.Owner, p.Beneficiary, p.Description, p.Priority, p.State, p.PaymentDate, p.OperationID, p.FailedCode, p.FailedMessage, p.CreatedAt, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(p.ID, p.EndToEndID, p.WalletID, p.Amount, p.Owner, p.Beneficiary, p.Description, p.Priority, p.State, p.PaymentDate, p.OperationID, p.FailedCode, p.FailedMessage, p.CreatedAt, p.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create payment")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := testPayment()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(p.ID).
			WillReturnRows(paymentRows(p))

		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.EndToEndID, got.EndToEndID)
		assert.Equal(t, p.State, got.State)
		assert.Equal(t, p.Owner, got.Owner)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, id)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound{})

		var notFound payment.ErrPaymentNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, id, notFound.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(p.ID).
			WillReturnError(expectedErr)

		got, err := repo.GetByID(ctx, p.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_GetByEndToEndID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := testPayment()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(p.EndToEndID).
			WillReturnRows(paymentRows(p))

		got, err := repo.GetByEndToEndID(ctx, p.EndToEndID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs("E00000000000000000000000000000000").
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByEndToEndID(ctx, "E00000000000000000000000000000000")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	p := testPayment()

	query := `UPDATE payments`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.EndToEndID, p.State, p.OperationID, p.FailedCode, p.FailedMessage, p.UpdatedAt, p.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, p)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment missing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(p.EndToEndID, p.State, p.OperationID, p.FailedCode, p.FailedMessage, p.UpdatedAt, p.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, p)
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_ListByStateUpdatedBefore(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	threshold := time.Now().Add(-10 * time.Minute)

	t.Run("returns batch oldest first", func(t *testing.T) {
		first := testPayment()
		second := testPayment()

		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(payment.StateWaiting, payment.PriorityNormal, threshold, 100).
			WillReturnRows(paymentRows(first, second))

		got, err := repo.ListByStateUpdatedBefore(ctx, payment.StateWaiting, payment.PriorityNormal, threshold, 100)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch", func(t *testing.T) {
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(payment.StateWaiting, payment.PriorityUrgent, threshold, 100).
			WillReturnRows(paymentRows())

		got, err := repo.ListByStateUpdatedBefore(ctx, payment.StateWaiting, payment.PriorityUrgent, threshold, 100)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(paymentSelectPattern).
			WithArgs(payment.StateWaiting, payment.PriorityNormal, threshold, 100).
			WillReturnError(expectedErr)

		got, err := repo.ListByStateUpdatedBefore(ctx, payment.StateWaiting, payment.PriorityNormal, threshold, 100)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to list payments for reconciliation")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
