package storage

import (
	"errors"
	"fmt"
	"time"

	"unimail/models"

	"gorm.io/gorm"
)

// StarFlags caches star state locally so list rows render the right icon
// before the provider round-trip confirms.
type StarFlags struct {
	db *gorm.DB
}

func NewStarFlags(db *gorm.DB) *StarFlags {
	return &StarFlags{db: db}
}

func (s *StarFlags) Set(accountID uint, messageID string, starred bool) error {
	var row models.StarFlag
	err := s.db.Where("account_id = ? AND message_id = ?", accountID, messageID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.StarFlag{AccountID: accountID, MessageID: messageID, Starred: starred}
		return s.db.Create(&row).Error
	case err != nil:
		return fmt.Errorf("loading star flag: %w", err)
	default:
		return s.db.Model(&row).Update("starred", starred).Error
	}
}

func (s *StarFlags) Get(accountID uint, messageID string) (bool, error) {
	var row models.StarFlag
	err := s.db.Where("account_id = ? AND message_id = ?", accountID, messageID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.Starred, nil
}

// Snoozes persists wake times for snoozed messages.
type Snoozes struct {
	db *gorm.DB
}

func NewSnoozes(db *gorm.DB) *Snoozes {
	return &Snoozes{db: db}
}

func (s *Snoozes) Set(accountID uint, messageID string, wakeAt time.Time) error {
	row := models.SnoozedMail{
		AccountID: accountID,
		MessageID: messageID,
		WakeAt:    wakeAt.Format(time.RFC3339),
	}
	return s.db.Create(&row).Error
}

// Due returns the messages whose wake time has passed and clears them.
func (s *Snoozes) Due(accountID uint, now time.Time) ([]string, error) {
	var rows []models.SnoozedMail
	if err := s.db.Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return nil, err
	}
	var due []string
	for _, row := range rows {
		wake, err := time.Parse(time.RFC3339, row.WakeAt)
		if err != nil || !wake.After(now) {
			due = append(due, row.MessageID)
			s.db.Delete(&models.SnoozedMail{}, row.ID)
		}
	}
	return due, nil
}

// Active reports whether a message is currently snoozed.
func (s *Snoozes) Active(accountID uint, messageID string, now time.Time) (bool, error) {
	var row models.SnoozedMail
	err := s.db.Where("account_id = ? AND message_id = ?", accountID, messageID).
		Order("created_at desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	wake, err := time.Parse(time.RFC3339, row.WakeAt)
	if err != nil {
		return false, nil
	}
	return wake.After(now), nil
}
