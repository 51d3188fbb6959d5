package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account 使用者帳戶
// 核心只用 ID 判斷存在與否，PasswordHash 僅供登入使用
type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAccount 建立新帳戶
func NewAccount(name, email, passwordHash string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail email 一律小寫、去除空白後比對
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
