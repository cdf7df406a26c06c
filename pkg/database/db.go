package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/team-builder-go/pkg/config"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Key       string     `gorm:"unique;not null" json:"-"`
	Preview   string     `json:"key_preview"`
	Name      string     `gorm:"not null" json:"name"`
	RateLimit int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key and day
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalPeople  int    `gorm:"default:0" json:"total_people"`
	TotalTeams   int    `gorm:"default:0" json:"total_teams"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DateFormat keys the daily usage rows
const DateFormat = "2006-01-02"

// Open connects to postgres when a database URL is configured and to the
// sqlite file at the data path otherwise, then migrates the schema
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	gcfg := &gorm.Config{}
	if cfg.DatabaseURL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseURL,
			PreferSimpleProtocol: true,
		})
		gcfg.PrepareStmt = false
	} else {
		dialector = sqlite.Open(cfg.DataPath)
	}
	return OpenWith(dialector, gcfg)
}

// OpenWith connects through an explicit dialector
func OpenWith(dialector gorm.Dialector, gcfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// RecordUsage adds one request with its people and team counts to today's
// row of the key using a single upsert
func RecordUsage(db *gorm.DB, keyID uint, people, teams int, now time.Time) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
			"total_people":  gorm.Expr("total_people + ?", people),
			"total_teams":   gorm.Expr("total_teams + ?", teams),
		}),
	}).Create(&APIUsage{
		KeyID:        keyID,
		Date:         now.Format(DateFormat),
		RequestCount: 1,
		TotalPeople:  people,
		TotalTeams:   teams,
	}).Error
}

// RequestsOn returns the number of requests a key made on the day of now
func RequestsOn(db *gorm.DB, keyID uint, now time.Time) (int, error) {
	var usage APIUsage
	err := db.Where("key_id = ? AND date = ?", keyID, now.Format(DateFormat)).Limit(1).Find(&usage).Error
	return usage.RequestCount, err
}

// History returns the latest daily rows of a key, newest first
func History(db *gorm.DB, keyID uint, days int) ([]APIUsage, error) {
	var usage []APIUsage
	err := db.Where("key_id = ?", keyID).Order("date desc").Limit(days).Find(&usage).Error
	return usage, err
}
