package store

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrConnectionNotFound = errors.New("connection not found")

// ConnectionRecord is the audit trail of one telnet session.
type ConnectionRecord struct {
	gorm.Model
	ConnectionID   uint64 `gorm:"index"` // ID within the server process that handled it
	RemoteAddr     string
	TerminalType   string
	Width          int
	Height         int
	BytesIn        int64
	BytesOut       int64
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
	Reason         string
}

// Open reports whether the session has not been closed yet.
func (r *ConnectionRecord) Open() bool {
	return r.DisconnectedAt == nil
}

func (r *ConnectionRecord) Duration() time.Duration {
	if r.DisconnectedAt == nil {
		return time.Since(r.ConnectedAt)
	}
	return r.DisconnectedAt.Sub(r.ConnectedAt)
}

// Disconnect is what is known about a session when it ends.
type Disconnect struct {
	TerminalType string
	Width        int
	Height       int
	BytesIn      int64
	BytesOut     int64
	Reason       string
	At           time.Time
}

func (s *Store) RecordConnect(connectionID uint64, remoteAddr string, at time.Time) (*ConnectionRecord, error) {
	record := ConnectionRecord{
		ConnectionID: connectionID,
		RemoteAddr:   remoteAddr,
		ConnectedAt:  at,
	}

	result := s.DB.Create(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

func (s *Store) RecordDisconnect(record *ConnectionRecord, d Disconnect) error {
	at := d.At
	return s.DB.Model(record).Updates(map[string]any{
		"terminal_type":   d.TerminalType,
		"width":           d.Width,
		"height":          d.Height,
		"bytes_in":        d.BytesIn,
		"bytes_out":       d.BytesOut,
		"reason":          d.Reason,
		"disconnected_at": &at,
	}).Error
}

// ListConnections returns the most recent sessions first.
func (s *Store) ListConnections(limit int) ([]ConnectionRecord, error) {
	var records []ConnectionRecord
	query := s.DB.Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) FindConnection(id uint) (*ConnectionRecord, error) {
	var record ConnectionRecord

	result := s.DB.First(&record, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConnectionNotFound
		}
		return nil, result.Error
	}
	return &record, nil
}
