// Package sqlite stores samples in a SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/golang/glog"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/robotalks/openbci.go/pkg/cyton"
)

// DefaultBatchSize is the number of samples committed per transaction.
const DefaultBatchSize = 250

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id   TEXT PRIMARY KEY,
		device_id    TEXT,
		started_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		ended_at     TIMESTAMP,
		sample_count BIGINT DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS samples (
		session_id   TEXT NOT NULL,
		seq          BIGINT NOT NULL,
		counter      INTEGER NOT NULL,
		ch0 INTEGER, ch1 INTEGER, ch2 INTEGER, ch3 INTEGER,
		ch4 INTEGER, ch5 INTEGER, ch6 INTEGER, ch7 INTEGER,
		motion_x     INTEGER,
		motion_y     INTEGER,
		motion_z     INTEGER,
		PRIMARY KEY (session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(session_id)
	);
`

const insertSample = `INSERT INTO samples (
	session_id, seq, counter,
	ch0, ch1, ch2, ch3, ch4, ch5, ch6, ch7,
	motion_x, motion_y, motion_z
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Store is a sink writing one session into the database.
type Store struct {
	BatchSize int

	db        *sql.DB
	sessionID string
	seq       int64
	tx        *sql.Tx
	stmt      *sql.Stmt
	pending   int
}

// Open opens (or creates) the database at path and registers a session.
func Open(path, sessionID, deviceID string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err = db.Exec(`INSERT INTO sessions (session_id, device_id) VALUES (?, ?)`, sessionID, deviceID); err != nil {
		db.Close()
		return nil, fmt.Errorf("register session %s: %w", sessionID, err)
	}
	return &Store{BatchSize: DefaultBatchSize, db: db, sessionID: sessionID}, nil
}

// SessionID returns the session samples are recorded under.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Append implements cyton.Sink.
func (s *Store) Append(sample cyton.Sample) error {
	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(insertSample)
		if err != nil {
			tx.Rollback()
			return err
		}
		s.tx, s.stmt = tx, stmt
	}
	args := make([]interface{}, 0, 14)
	args = append(args, s.sessionID, s.seq, int64(sample.Counter))
	for _, v := range sample.Channels {
		args = append(args, int64(v))
	}
	for _, v := range sample.Motion {
		args = append(args, int64(v))
	}
	if _, err := s.stmt.Exec(args...); err != nil {
		return err
	}
	s.seq++
	s.pending++
	if s.pending >= s.BatchSize {
		return s.Flush()
	}
	return nil
}

// Flush commits pending samples.
func (s *Store) Flush() error {
	if s.tx == nil {
		return nil
	}
	s.stmt.Close()
	err := s.tx.Commit()
	s.tx, s.stmt, s.pending = nil, nil, 0
	return err
}

// Close commits pending samples, closes the session and the database.
func (s *Store) Close() error {
	err := s.Flush()
	if _, uerr := s.db.Exec(`UPDATE sessions SET ended_at = ?, sample_count = ? WHERE session_id = ?`,
		time.Now().UTC(), s.seq, s.sessionID); uerr != nil && err == nil {
		err = uerr
	}
	glog.V(1).Infof("session %s: %d samples stored", s.sessionID, s.seq)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Samples reads back the samples of a session in order.
func Samples(db *sql.DB, sessionID string) ([]cyton.Sample, error) {
	rows, err := db.Query(`SELECT counter, ch0, ch1, ch2, ch3, ch4, ch5, ch6, ch7,
		motion_x, motion_y, motion_z FROM samples WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var samples []cyton.Sample
	for rows.Next() {
		var s cyton.Sample
		c, m := &s.Channels, &s.Motion
		if err := rows.Scan(&s.Counter, &c[0], &c[1], &c[2], &c[3], &c[4], &c[5], &c[6], &c[7],
			&m[0], &m[1], &m[2]); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Session is a row of the sessions table.
type Session struct {
	ID          string
	DeviceID    string
	SampleCount int64
}

// Sessions lists recorded sessions.
func Sessions(db *sql.DB) ([]Session, error) {
	rows, err := db.Query(`SELECT session_id, device_id, sample_count FROM sessions ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.SampleCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
