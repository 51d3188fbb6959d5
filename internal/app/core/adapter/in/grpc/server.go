package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// TokenVerifier 驗證 bearer token 並回傳帳戶 ID
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type GrpcServer struct {
	core   *usecase.CoreUseCase
	tokens TokenVerifier
	logger *zap.Logger
}

func NewGrpcServer(core *usecase.CoreUseCase, tokens TokenVerifier, logger *zap.Logger) *GrpcServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcServer{
		core:   core,
		tokens: tokens,
		logger: logger,
	}
}

func (s *GrpcServer) GetBalance(ctx context.Context, _ *GetBalanceRequest) (*BalanceResponse, error) {
	accountID, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := s.core.GetBalance(ctx, accountID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toBalanceResponse(balance), nil
}

func (s *GrpcServer) CreateStatement(ctx context.Context, req *CreateStatementRequest) (*StatementResponse, error) {
	accountID, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	statement, err := s.core.CreateStatement(ctx, usecase.CreateStatementInput{
		AccountID:   accountID,
		Type:        domain.OperationType(strings.ToLower(req.Type)),
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &StatementResponse{Statement: toStatementMessage(statement)}, nil
}

func (s *GrpcServer) CreateTransfer(ctx context.Context, req *CreateTransferRequest) (*StatementResponse, error) {
	payerID, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	payeeID, err := uuid.Parse(req.PayeeID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid payee_id")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	statement, err := s.core.CreateTransfer(ctx, usecase.CreateTransferInput{
		PayerID:     payerID,
		PayeeID:     payeeID,
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &StatementResponse{Statement: toStatementMessage(statement)}, nil
}

func (s *GrpcServer) GetStatement(ctx context.Context, req *GetStatementRequest) (*StatementResponse, error) {
	accountID, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	statementID, err := uuid.Parse(req.StatementID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid statement_id")
	}

	statement, err := s.core.GetStatement(ctx, accountID, statementID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &StatementResponse{Statement: toStatementMessage(statement)}, nil
}

// authenticate 從 metadata 的 authorization: Bearer <token> 取出帳戶
func (s *GrpcServer) authenticate(ctx context.Context) (uuid.UUID, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return uuid.Nil, status.Error(codes.Unauthenticated, "missing authorization token")
	}

	scheme, token, found := strings.Cut(values[0], " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return uuid.Nil, status.Error(codes.Unauthenticated, "malformed authorization token")
	}

	accountID, err := s.tokens.Verify(token)
	if err != nil {
		return uuid.Nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return accountID, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, status.Error(codes.InvalidArgument, "invalid amount")
	}
	return amount, nil
}

// toStatus 領域錯誤對應 gRPC 狀態碼，其餘視為內部錯誤
func (s *GrpcServer) toStatus(err error) error {
	if kind, ok := domain.KindOf(err); ok {
		return status.Error(codeFor(kind), err.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	s.logger.Error("grpc request failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func codeFor(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindAccountNotFound,
		domain.KindPayerNotFound,
		domain.KindPayeeNotFound,
		domain.KindStatementNotFound:
		return codes.NotFound
	case domain.KindSelfTransfer,
		domain.KindInsufficientFunds,
		domain.KindInvalidAmount,
		domain.KindInvalidOperation,
		domain.KindAccountAlreadyExists:
		return codes.InvalidArgument
	case domain.KindIncorrectCredentials:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

var _ StatementServiceServer = (*GrpcServer)(nil)
