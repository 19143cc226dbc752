package database

import "github.com/quantu99/Test-Beincom-BE/internal/models"

// PersistentModels returns every model that owns a table, in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
	}
}
