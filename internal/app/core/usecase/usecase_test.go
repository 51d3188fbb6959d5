package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

type fixture struct {
	core   *usecase.CoreUseCase
	users  *memory.UserStore
	ledger *memory.MutexLedger
	events *recordingPublisher
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Statement
	err    error
}

func (p *recordingPublisher) PublishStatementCreated(_ context.Context, s domain.Statement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, s)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func setup(t *testing.T) *fixture {
	t.Helper()
	users, err := memory.NewUserStore(nil)
	require.NoError(t, err)
	ledger, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	events := &recordingPublisher{}
	return &fixture{
		core:   usecase.NewCoreUseCase(users, ledger, usecase.WithPublisher(events)),
		users:  users,
		ledger: ledger,
		events: events,
	}
}

func (f *fixture) account(t *testing.T, name string) uuid.UUID {
	t.Helper()
	a := domain.NewAccount(name, name+"@example.com", "hash")
	require.NoError(t, f.users.Create(context.Background(), a))
	return a.ID
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) deposit(t *testing.T, id uuid.UUID, amount string) domain.Statement {
	t.Helper()
	s, err := f.core.CreateStatement(context.Background(), usecase.CreateStatementInput{
		AccountID: id, Type: domain.OperationTypeDeposit, Amount: dec(amount), Description: "deposit",
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) withdraw(id uuid.UUID, amount string) (domain.Statement, error) {
	return f.core.CreateStatement(context.Background(), usecase.CreateStatementInput{
		AccountID: id, Type: domain.OperationTypeWithdraw, Amount: dec(amount), Description: "withdraw",
	})
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	b, err := f.core.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return b.Amount
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestDepositThenWithdraw(t *testing.T) {
	f := setup(t)
	john := f.account(t, "john")

	deposit := f.deposit(t, john, "500.80")
	withdraw, err := f.withdraw(john, "250.60")
	require.NoError(t, err)

	b, err := f.core.GetBalance(context.Background(), john)
	require.NoError(t, err)
	assertDecimal(t, "250.20", b.Amount)
	require.Len(t, b.History, 2)
	assert.Equal(t, deposit.ID(), b.History[0].Statement.ID())
	assert.Equal(t, domain.DirectionCredit, b.History[0].Direction)
	assert.Equal(t, withdraw.ID(), b.History[1].Statement.ID())
	assert.Equal(t, domain.DirectionDebit, b.History[1].Direction)
	assert.Equal(t, 2, f.events.count())
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	f := setup(t)
	john := f.account(t, "john")
	f.deposit(t, john, "500.80")

	_, err := f.withdraw(john, "650.60")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assertDecimal(t, "500.80", f.balance(t, john))
	assert.Equal(t, 1, f.ledger.Len())
	assert.Equal(t, 1, f.events.count())
}

func TestCreateStatement_Errors(t *testing.T) {
	f := setup(t)
	john := f.account(t, "john")

	tests := []struct {
		name    string
		in      usecase.CreateStatementInput
		wantErr error
	}{
		{
			name:    "unknown account",
			in:      usecase.CreateStatementInput{AccountID: uuid.New(), Type: domain.OperationTypeDeposit, Amount: dec("360.80")},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "zero amount",
			in:      usecase.CreateStatementInput{AccountID: john, Type: domain.OperationTypeDeposit, Amount: decimal.Zero},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount checked before account",
			in:      usecase.CreateStatementInput{AccountID: uuid.New(), Type: domain.OperationTypeWithdraw, Amount: dec("-5")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "more decimal places than storage keeps",
			in:      usecase.CreateStatementInput{AccountID: john, Type: domain.OperationTypeDeposit, Amount: dec("1.00005")},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "transfer through statement creator",
			in:      usecase.CreateStatementInput{AccountID: john, Type: domain.OperationTypeTransfer, Amount: dec("1")},
			wantErr: domain.ErrInvalidOperation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.core.CreateStatement(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.ledger.Len())
}

func TestTransfer(t *testing.T) {
	f := setup(t)
	a := f.account(t, "alice")
	b := f.account(t, "bob")
	f.deposit(t, a, "750.00")

	transfer, err := f.core.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		PayerID: a, PayeeID: b, Amount: dec("150.00"), Description: "service payment",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OperationTypeTransfer, transfer.Type())
	assert.Equal(t, b, transfer.UserID())
	sender, ok := transfer.SenderID()
	require.True(t, ok)
	assert.Equal(t, a, sender)

	assertDecimal(t, "600.00", f.balance(t, a))
	assertDecimal(t, "150.00", f.balance(t, b))

	// 同一筆轉帳出現在雙方的歷史中
	ba, err := f.core.GetBalance(context.Background(), a)
	require.NoError(t, err)
	bb, err := f.core.GetBalance(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, transfer.ID(), ba.History[1].Statement.ID())
	assert.Equal(t, domain.DirectionDebit, ba.History[1].Direction)
	require.Len(t, bb.History, 1)
	assert.Equal(t, transfer.ID(), bb.History[0].Statement.ID())
	assert.Equal(t, domain.DirectionCredit, bb.History[0].Direction)
	assert.Equal(t, 2, f.ledger.Len())

	// 收款方可以再轉回去
	_, err = f.core.CreateTransfer(context.Background(), usecase.CreateTransferInput{PayerID: b, PayeeID: a, Amount: dec("50")})
	require.NoError(t, err)
	assertDecimal(t, "650.00", f.balance(t, a))
	assertDecimal(t, "100.00", f.balance(t, b))
}

func TestTransfer_ValidationOrder(t *testing.T) {
	f := setup(t)
	a := f.account(t, "alice")
	b := f.account(t, "bob")
	f.deposit(t, a, "750")
	ghost := uuid.New()

	tests := []struct {
		name    string
		in      usecase.CreateTransferInput
		wantErr error
	}{
		{name: "payer missing", in: usecase.CreateTransferInput{PayerID: ghost, PayeeID: b, Amount: dec("150")}, wantErr: domain.ErrPayerNotFound},
		{name: "payer missing and equal to payee", in: usecase.CreateTransferInput{PayerID: ghost, PayeeID: ghost, Amount: dec("1")}, wantErr: domain.ErrPayerNotFound},
		{name: "self transfer with ample balance", in: usecase.CreateTransferInput{PayerID: a, PayeeID: a, Amount: dec("1")}, wantErr: domain.ErrSelfTransfer},
		{name: "payee missing beats insufficient funds", in: usecase.CreateTransferInput{PayerID: a, PayeeID: ghost, Amount: dec("100000")}, wantErr: domain.ErrPayeeNotFound},
		{name: "insufficient funds", in: usecase.CreateTransferInput{PayerID: a, PayeeID: b, Amount: dec("751")}, wantErr: domain.ErrInsufficientFunds},
		{name: "non positive amount", in: usecase.CreateTransferInput{PayerID: a, PayeeID: b, Amount: dec("0")}, wantErr: domain.ErrInvalidAmount},
		{name: "sub-scale amount", in: usecase.CreateTransferInput{PayerID: a, PayeeID: b, Amount: dec("0.00001")}, wantErr: domain.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.core.CreateTransfer(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "want %v, got %v", tt.wantErr, err)
		})
	}
	assert.Equal(t, 1, f.ledger.Len())
}

func TestGetStatement(t *testing.T) {
	f := setup(t)
	a := f.account(t, "alice")
	b := f.account(t, "bob")
	c := f.account(t, "carol")
	deposit := f.deposit(t, a, "500.60")
	transfer, err := f.core.CreateTransfer(context.Background(), usecase.CreateTransferInput{PayerID: a, PayeeID: b, Amount: dec("10")})
	require.NoError(t, err)

	got, err := f.core.GetStatement(context.Background(), a, deposit.ID())
	require.NoError(t, err)
	assert.Equal(t, deposit.ID(), got.ID())

	// 付款方與收款方都看得到轉帳
	_, err = f.core.GetStatement(context.Background(), a, transfer.ID())
	require.NoError(t, err)
	_, err = f.core.GetStatement(context.Background(), b, transfer.ID())
	require.NoError(t, err)

	// 其他帳戶的帳目視為不存在
	_, err = f.core.GetStatement(context.Background(), c, deposit.ID())
	assert.ErrorIs(t, err, domain.ErrStatementNotFound)

	_, err = f.core.GetStatement(context.Background(), a, uuid.New())
	assert.ErrorIs(t, err, domain.ErrStatementNotFound)

	// 帳戶不存在優先於帳目不存在
	_, err = f.core.GetStatement(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestGetBalance_UnknownAccount(t *testing.T) {
	f := setup(t)
	_, err := f.core.GetBalance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestPublishFailureDoesNotUndoCommit(t *testing.T) {
	f := setup(t)
	f.events.err = errors.New("broker down")
	john := f.account(t, "john")

	f.deposit(t, john, "10")
	assertDecimal(t, "10", f.balance(t, john))
}
