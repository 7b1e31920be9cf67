package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/staffgate/staffgate/internal/db/models"
)

// seed creates the default User role on an empty catalogue. It matches the app role every
// directory application exposes, so a fresh install can assign modules without custom roles.
func seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Role{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	if err := db.Create(&models.Role{
		Name:        "User",
		Code:        "USER",
		Description: "Default role matching the directory app role User",
	}).Error; err != nil {
		return err
	}

	log.Info().Msg("seeded default role User")

	return nil
}
