// Package database provides the data access layer for the application.
//
// database.go owns the connection, migrations, and the format
// vocabulary seed. Domain logic lives in dedicated packages that each
// take the *gorm.DB:
//
//	db, err := database.NewDatabase("./shelfmark.db")
//
//	resolver := catalog.NewResolver(db.DB)
//	shelfSvc := shelf.NewService(db.DB, resolver)
//	statsSvc := stats.NewService(db.DB, db)
//
// The Database struct itself keeps only cross-domain operations:
// users, format lookups, and the loan counter consumed by the
// dashboard.
package database
