package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// UserUseCase 帳戶註冊、登入與個人資料
type UserUseCase struct {
	users      UserRepository
	tokens     TokenIssuer
	bcryptCost int
	logger     *zap.Logger
}

// NewUserUseCase 建立 UserUseCase
//
// 參數:
//
//	users: 帳戶儲存
//	tokens: token 簽發者
//	bcryptCost: 密碼雜湊成本，0 代表使用 bcrypt.DefaultCost
//	logger: 可為 nil
func NewUserUseCase(users UserRepository, tokens TokenIssuer, bcryptCost int, logger *zap.Logger) *UserUseCase {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserUseCase{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUserInput 註冊參數
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult 登入結果
type AuthResult struct {
	Account *domain.Account
	Token   string
}

// CreateUser 註冊新帳戶
func (u *UserUseCase) CreateUser(ctx context.Context, in CreateUserInput) (*domain.Account, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Name) == "" || in.Password == "" {
		return nil, domain.ErrInvalidOperation
	}

	_, err := u.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrAccountAlreadyExists
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("find account by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := domain.NewAccount(strings.TrimSpace(in.Name), email, string(hash))
	if err := u.users.Create(ctx, account); err != nil {
		return nil, err
	}
	u.logger.Info("account created", zap.String("account_id", account.ID.String()))
	return account, nil
}

// AuthenticateUser 驗證帳密並簽發 token
// 帳號不存在與密碼錯誤回傳同一種錯誤
func (u *UserUseCase) AuthenticateUser(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrIncorrectCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrIncorrectCredentials
	}

	token, err := u.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}

// ShowUserProfile 取得帳戶資料
func (u *UserUseCase) ShowUserProfile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := u.users.FindByID(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.NewAccountError(domain.KindAccountNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", accountID, err)
	}
	return account, nil
}
