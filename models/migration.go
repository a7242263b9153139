package models

import (
	"bitbucket.org/mmdatafocus/training_reports/config"
)

func MigrateTable() error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&ExportLog{})
}
