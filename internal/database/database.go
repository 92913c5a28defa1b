package database

import (
	"database/sql"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// The fixed format vocabulary. Every shelf entry references one of
// these rows; the seed runs on every startup and is idempotent.
var defaultFormats = []entities.Format{
	{Name: "paperback", DisplayName: "Paperback"},
	{Name: "hardcover", DisplayName: "Hardcover"},
	{Name: "ebook", DisplayName: "E-Book"},
	{Name: "audiobook", DisplayName: "Audiobook"},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surfaces unique-index violations as gorm.ErrDuplicatedKey so
		// the shelf create can map the (user, book) backstop to a
		// ConflictError instead of a generic storage failure.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Explicit join models so the composite primary keys double as the
	// no-duplicate-link constraint.
	if err := db.SetupJoinTable(&entities.Book{}, "Authors", &entities.BookAuthor{}); err != nil {
		return nil, fmt.Errorf("failed to set up book_authors join table: %w", err)
	}
	if err := db.SetupJoinTable(&entities.Book{}, "Genres", &entities.BookGenre{}); err != nil {
		return nil, fmt.Errorf("failed to set up book_genres join table: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Format{},
		&entities.Book{},
		&entities.Author{},
		&entities.Genre{},
		&entities.ShelfEntry{},
		&entities.Loan{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedFormats(); err != nil {
		return nil, fmt.Errorf("failed to seed formats: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for collaborators that bypass
// GORM (the scs session store).
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

func (d *Database) seedFormats() error {
	for _, format := range defaultFormats {
		var existing entities.Format
		result := d.DB.Where("name = ?", format.Name).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&format).Error; err != nil {
				return fmt.Errorf("failed to create format %s: %w", format.Name, err)
			}
			log.Printf("Created format: %s", format.DisplayName)
		}
	}
	return nil
}

func (d *Database) GetFormatByName(name string) (*entities.Format, error) {
	var format entities.Format
	err := d.DB.Where("name = ?", name).First(&format).Error
	if err != nil {
		return nil, err
	}
	return &format, nil
}

func (d *Database) GetAllFormats() ([]entities.Format, error) {
	var formats []entities.Format
	err := d.DB.Order("id ASC").Find(&formats).Error
	return formats, err
}

func (d *Database) CreateUser(username, passwordHash string) (*entities.User, error) {
	user := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := d.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (d *Database) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := d.DB.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := d.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountOpenLoans returns the number of the user's loans with no
// return date. Feeds the dashboard's loansOpen figure.
func (d *Database) CountOpenLoans(userID uint) (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Loan{}).
		Where("user_id = ? AND returned_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (d *Database) CreateLoan(loan *entities.Loan) error {
	return d.DB.Create(loan).Error
}

func (d *Database) ReturnLoan(id, userID uint) error {
	result := d.DB.Model(&entities.Loan{}).
		Where("id = ? AND user_id = ? AND returned_at IS NULL", id, userID).
		Update("returned_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
