package storage

import (
	"context"
	"errors"
	"fmt"

	"unimail/models"
	"unimail/utils"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Tokens hands out OAuth tokens for cached accounts. Account id 0 means
// "any account of this provider", used by the accounts-listing call that
// runs before a specific account is chosen.
type Tokens struct {
	db   *gorm.DB
	kind models.ProviderKind
}

func NewTokens(db *gorm.DB, kind models.ProviderKind) *Tokens {
	return &Tokens{db: db, kind: kind}
}

func (t *Tokens) row(accountID uint) (*models.CachedAccount, error) {
	var row models.CachedAccount
	q := t.db.Where("type = ?", t.kind)
	if accountID != 0 {
		q = q.Where("account_id = ?", accountID)
	}
	err := q.Order("account_id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no cached %s account for id %d", t.kind, accountID)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t *Tokens) Token(_ context.Context, accountID uint) (*oauth2.Token, error) {
	row, err := t.row(accountID)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.Decrypt(row.EncryptedToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting token for account %d: %w", accountID, err)
	}
	return &oauth2.Token{RefreshToken: refresh}, nil
}

func (t *Tokens) Email(accountID uint) string {
	row, err := t.row(accountID)
	if err != nil {
		return ""
	}
	return row.Email
}
