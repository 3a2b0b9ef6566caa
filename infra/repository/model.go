package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Amount is a decimal(20,4) column. sqlite has no exact numeric storage and
// would keep such a column as REAL, so there it is stored as TEXT.
type Amount struct {
	decimal.Decimal
}

// GormDBDataType picks the column type for the connected dialect.
func (Amount) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "text"
	}
	return "decimal(20,4)"
}

// User represents a user record in the database.
type User struct {
	Username  string `gorm:"primaryKey;size:64"`
	Password  string `gorm:"size:255;not null"`
	CreatedAt time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// Account represents an account record in the database. Deleted accounts
// keep a tombstone row (soft delete) so their id can never be taken again.
type Account struct {
	ID        uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	Name      string          `gorm:"size:255;not null"`
	Balance   Amount    `gorm:"not null"`
	Owner     string          `gorm:"size:64;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Membership links a user to an account. Seq keeps insertion order.
type Membership struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	Username  string    `gorm:"size:64;not null;uniqueIndex:idx_memberships_user_account"`
	AccountID uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_memberships_user_account;index"`
	CreatedAt time.Time
}

// TableName specifies the table name for the Membership model.
func (Membership) TableName() string {
	return "memberships"
}

// Transaction represents a transaction record in the database. Seq breaks
// ties between transactions created within the same instant.
type Transaction struct {
	Seq         uint64          `gorm:"primaryKey;autoIncrement"`
	ID          uuid.UUID       `gorm:"type:varchar(36);not null;uniqueIndex"`
	AccountID   uuid.UUID       `gorm:"type:varchar(36);not null;index"`
	Type        string          `gorm:"size:16;not null"`
	Amount      Amount          `gorm:"not null"`
	Description string          `gorm:"size:255"`
	RecordedBy  string          `gorm:"size:64;not null"`
	CreatedAt   time.Time       `gorm:"index"`
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

// Models lists every model for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Account{}, &Membership{}, &Transaction{}}
}
