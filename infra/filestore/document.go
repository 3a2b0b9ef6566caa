package filestore

import (
	"time"
)

const documentVersion = 1

type userRecord struct {
	Username  string    `json:"username" yaml:"username"`
	Password  string    `json:"password" yaml:"password"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type accountRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Balance   string    `json:"balance" yaml:"balance"`
	Owner     string    `json:"owner" yaml:"owner"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type membershipRecord struct {
	Username  string `json:"username" yaml:"username"`
	AccountID string `json:"account_id" yaml:"account_id"`
}

type transactionRecord struct {
	ID          string    `json:"id" yaml:"id"`
	AccountID   string    `json:"account_id" yaml:"account_id"`
	Type        string    `json:"type" yaml:"type"`
	Amount      string    `json:"amount" yaml:"amount"`
	Description string    `json:"description" yaml:"description"`
	RecordedBy  string    `json:"recorded_by" yaml:"recorded_by"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// document is the whole ledger as persisted on disk. Memberships and
// transactions are kept in insertion order.
type document struct {
	Version      int                      `json:"version" yaml:"version"`
	Users        map[string]userRecord    `json:"users" yaml:"users"`
	Accounts     map[string]accountRecord `json:"accounts" yaml:"accounts"`
	Memberships  []membershipRecord       `json:"memberships" yaml:"memberships"`
	Transactions []transactionRecord      `json:"transactions" yaml:"transactions"`
	RetiredIDs   []string                 `json:"retired_ids" yaml:"retired_ids"`
	UpdatedAt    time.Time                `json:"updated_at" yaml:"updated_at"`
}

func newDocument() *document {
	return &document{
		Version:   documentVersion,
		Users:     map[string]userRecord{},
		Accounts:  map[string]accountRecord{},
		UpdatedAt: time.Now().UTC(),
	}
}

// normalize fills maps left nil by decoding an older or hand-edited file.
func (d *document) normalize() {
	if d.Users == nil {
		d.Users = map[string]userRecord{}
	}
	if d.Accounts == nil {
		d.Accounts = map[string]accountRecord{}
	}
	if d.Version == 0 {
		d.Version = documentVersion
	}
}

// clone returns a copy that shares nothing mutable with d.
func (d *document) clone() *document {
	c := &document{
		Version:      d.Version,
		Users:        make(map[string]userRecord, len(d.Users)),
		Accounts:     make(map[string]accountRecord, len(d.Accounts)),
		Memberships:  append([]membershipRecord(nil), d.Memberships...),
		Transactions: append([]transactionRecord(nil), d.Transactions...),
		RetiredIDs:   append([]string(nil), d.RetiredIDs...),
		UpdatedAt:    d.UpdatedAt,
	}
	for k, v := range d.Users {
		c.Users[k] = v
	}
	for k, v := range d.Accounts {
		c.Accounts[k] = v
	}
	return c
}

func (d *document) isRetired(id string) bool {
	for _, r := range d.RetiredIDs {
		if r == id {
			return true
		}
	}
	return false
}

func nowUTC() time.Time { return time.Now().UTC() }
