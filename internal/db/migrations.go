package db

// RunMigrations creates or updates the items schema
func RunMigrations(db *DB) error {
	return db.AutoMigrate(&Item{})
}
