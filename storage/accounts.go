package storage

import (
	"errors"
	"fmt"

	"unimail/models"
	"unimail/utils"

	"gorm.io/gorm"
)

// AccountCache persists each user's connected-account list so a restart can
// rebuild the account switcher without a provider round-trip. Tokens are
// encrypted before they touch the database.
type AccountCache struct {
	db *gorm.DB
}

func NewAccountCache(db *gorm.DB) *AccountCache {
	return &AccountCache{db: db}
}

// Save replaces the user's cached list with the given accounts.
func (c *AccountCache) Save(userID uint, accounts []models.Account, tokens map[uint]string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.CachedAccount{}).Error; err != nil {
			return fmt.Errorf("clearing cached accounts: %w", err)
		}
		for _, acct := range accounts {
			encrypted, err := utils.Encrypt(tokens[acct.ID])
			if err != nil {
				return fmt.Errorf("encrypting token for account %d: %w", acct.ID, err)
			}
			row := models.CachedAccount{
				UserID:         userID,
				AccountID:      acct.ID,
				Email:          acct.Email,
				Type:           acct.Type,
				EncryptedToken: encrypted,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("caching account %d: %w", acct.ID, err)
			}
		}
		return nil
	})
}

// Load returns the cached account list, or (nil, nil) when the user has none.
func (c *AccountCache) Load(userID uint) ([]models.Account, error) {
	var rows []models.CachedAccount
	if err := c.db.Where("user_id = ?", userID).Order("account_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading cached accounts: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	accounts := make([]models.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, models.Account{
			ID:    row.AccountID,
			Email: row.Email,
			Type:  row.Type,
		})
	}
	return accounts, nil
}

// LoadAll returns every cached account across users, for the poll worker.
func (c *AccountCache) LoadAll() ([]models.Account, error) {
	var rows []models.CachedAccount
	if err := c.db.Order("account_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading cached accounts: %w", err)
	}
	accounts := make([]models.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, models.Account{
			ID:    row.AccountID,
			Email: row.Email,
			Type:  row.Type,
		})
	}
	return accounts, nil
}

// Token decrypts the stored refresh token for one cached account.
func (c *AccountCache) Token(userID, accountID uint) (string, error) {
	var row models.CachedAccount
	err := c.db.Where("user_id = ? AND account_id = ?", userID, accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("account %d not cached", accountID)
	}
	if err != nil {
		return "", err
	}
	return utils.Decrypt(row.EncryptedToken)
}

// Delete drops one account from the cache on disconnect.
func (c *AccountCache) Delete(userID, accountID uint) error {
	return c.db.Where("user_id = ? AND account_id = ?", userID, accountID).
		Delete(&models.CachedAccount{}).Error
}
