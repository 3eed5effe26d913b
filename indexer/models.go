package indexer

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Puzzle statuses stored in the index.
const (
	StatusOpen   = "open"
	StatusSolved = "solved"
)

// Uint64 is a uint64 column stored as a zero-padded 20 digit decimal string.
// database/sql rejects uint64 arguments with the high bit set, and the
// padding keeps lexical order equal to numeric order.
type Uint64 uint64

// GormDataType pins the column type for every dialect.
func (Uint64) GormDataType() string { return "varchar(20)" }

// Value implements driver.Valuer.
func (u Uint64) Value() (driver.Value, error) {
	return fmt.Sprintf("%020d", uint64(u)), nil
}

// Scan implements sql.Scanner.
func (u *Uint64) Scan(src interface{}) error {
	var text string
	switch v := src.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("indexer: negative value %d", v)
		}
		*u = Uint64(v)
		return nil
	case nil:
		*u = 0
		return nil
	default:
		return fmt.Errorf("indexer: cannot scan %T into Uint64", src)
	}
	parsed, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("indexer: parse %q: %w", text, err)
	}
	*u = Uint64(parsed)
	return nil
}

// PuzzleRecord mirrors the lifecycle of a puzzle as seen through committed
// events. Amounts are decimal strings so postgres and sqlite agree on
// precision.
type PuzzleRecord struct {
	Number        Uint64     `gorm:"primaryKey;autoIncrement:false;type:varchar(20)" json:"number"`
	Status        string     `gorm:"index;not null" json:"status"`
	Requester     string     `gorm:"index" json:"requester,omitempty"`
	Reward        string     `json:"reward,omitempty"`
	Solver        string     `gorm:"index" json:"solver,omitempty"`
	A             Uint64     `gorm:"type:varchar(20)" json:"a,omitempty"`
	B             Uint64     `gorm:"type:varchar(20)" json:"b,omitempty"`
	SolverShare   string     `json:"solverShare,omitempty"`
	TreasuryShare string     `json:"treasuryShare,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	SolvedAt      *time.Time `json:"solvedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// AutoMigrate creates or updates the index schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&PuzzleRecord{})
}
