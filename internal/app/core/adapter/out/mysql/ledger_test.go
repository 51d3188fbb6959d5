package mysql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

func TestSQLStatement_Conversion(t *testing.T) {
	payer, payee := uuid.New(), uuid.New()

	tests := []struct {
		name   string
		user   uuid.UUID
		sender uuid.UUID
		opType domain.OperationType
	}{
		{name: "deposit", user: payee, sender: uuid.Nil, opType: domain.OperationTypeDeposit},
		{name: "transfer", user: payee, sender: payer, opType: domain.OperationTypeTransfer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := domain.NewStatement(tt.user, tt.sender, tt.opType, decimal.RequireFromString("10.1234"), "x")
			require.NoError(t, err)

			row := toSQLStatement(s)
			assert.Len(t, row.ID, 16)
			if tt.sender == uuid.Nil {
				assert.Nil(t, row.SenderID, "non transfer rows store NULL sender")
			}

			back, err := row.toDomain()
			require.NoError(t, err)
			assert.Equal(t, s.ID(), back.ID())
			assert.Equal(t, s.UserID(), back.UserID())
			assert.True(t, s.Amount().Equal(back.Amount()))
			sender, ok := back.SenderID()
			assert.Equal(t, tt.sender != uuid.Nil, ok)
			assert.Equal(t, tt.sender, sender)
		})
	}
}

func TestSQLStatement_CorruptID(t *testing.T) {
	row := sqlStatement{ID: []byte{1, 2, 3}}
	_, err := row.toDomain()
	assert.Error(t, err)
}
