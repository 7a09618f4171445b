package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordType classifies a bookkeeping record as money coming in or going out.
type RecordType string

const (
	Income  RecordType = "income"
	Expense RecordType = "expense"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	return t == Income || t == Expense
}

// Date is a calendar date with no time component. It marshals to and from
// the "2006-01-02" form used on the wire and in local storage.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month and day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Record is the synchronizable unit of the bookkeeping domain.
//
// ID is the stable client-side identity: assigned once, locally, never
// reused. A record may additionally carry a server identity after its
// first successful sync; that mapping lives in [RecordVersion], never here.
type Record struct {
	// ID is the client-assigned UUID of the record.
	ID string `json:"id"`

	// Type is either "income" or "expense".
	Type RecordType `json:"type"`

	// Amount is the monetary value of the record. Always positive;
	// Type carries the sign semantics.
	Amount decimal.Decimal `json:"amount"`

	// Category is the key of the category this record belongs to.
	Category string `json:"category"`

	// Date is the calendar date the record applies to.
	Date Date `json:"date"`

	// Note is an optional free-form annotation.
	Note *string `json:"note,omitempty"`

	// LedgerID identifies the owning ledger.
	LedgerID string `json:"ledger_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt is the soft-delete marker. A non-nil value makes the
	// record a tombstone.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the record is a tombstone.
func (r Record) Deleted() bool {
	return r.DeletedAt != nil
}

// Summary is the aggregate view of the live local records.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// ServerRecord is the authoritative wire form of a record held by the
// server. It extends Record with the server-assigned identity and the
// global sync version the record was last committed at.
type ServerRecord struct {
	Record

	// ServerID is the server-assigned identity of the record.
	ServerID int64 `json:"server_id"`

	// UserID is the owner of the record. Never serialized to clients.
	UserID int64 `json:"-"`

	// SyncVersion is the value of the user's version counter at the
	// time this record was last committed.
	SyncVersion int64 `json:"sync_version"`
}

// RecordUpdate carries a partial record mutation pushed to the server.
// Nil fields are left untouched. SyncVersion is the version the client
// believes the server record is at; a mismatch is reported back as a
// version_mismatch conflict.
type RecordUpdate struct {
	ServerID    int64            `json:"id"`
	ClientID    string           `json:"client_id,omitempty"`
	Type        *RecordType      `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Date        *Date            `json:"date,omitempty"`
	Note        *string          `json:"note,omitempty"`
	LedgerID    *string          `json:"ledger_id,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
	SyncVersion int64            `json:"sync_version"`
}
