package postgres

import (
	"github.com/purplefish/interviewchat/internal/models"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Conversation{}, &models.Message{})
}
