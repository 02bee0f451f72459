package models

import "time"

// KVEntry is one row of the SQL-backed key-value store.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     []byte    `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (KVEntry) TableName() string { return "kv_entries" }
