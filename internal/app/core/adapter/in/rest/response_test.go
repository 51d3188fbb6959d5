package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "domain error", err: domain.NewAccountError(domain.KindPayeeNotFound, uuid.New()), want: http.StatusNotFound},
		{name: "wrapped domain error", err: fmt.Errorf("x: %w", domain.ErrInsufficientFunds), want: http.StatusBadRequest},
		{name: "client canceled", err: fmt.Errorf("list statements: %w", context.Canceled), want: statusClientClosedRequest},
		{name: "infrastructure", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.want, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestStatusFor_AllKinds(t *testing.T) {
	for kind := domain.KindAccountNotFound; kind <= domain.KindIncorrectCredentials; kind++ {
		assert.NotEqual(t, http.StatusInternalServerError, statusFor(kind), kind.String())
	}
}
