package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meetings (
	id            TEXT PRIMARY KEY,
	agenda        TEXT NOT NULL,
	attendes      TEXT NOT NULL DEFAULT '[]',
	attendes_lead TEXT NOT NULL DEFAULT '[]',
	location      TEXT NOT NULL DEFAULT '',
	related       TEXT NOT NULL,
	date_time     TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	create_by     TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	deleted       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_meetings_create_by ON meetings(create_by);
CREATE INDEX IF NOT EXISTS idx_meetings_created_at ON meetings(created_at);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS leads (
	id        TEXT PRIMARY KEY,
	lead_name TEXT NOT NULL DEFAULT '',
	email     TEXT NOT NULL DEFAULT ''
);
`

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Ping checks the connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// InsertMeeting stores a new meeting.
func (s *SQLite) InsertMeeting(ctx context.Context, m *models.Meeting) error {
	attendes, err := encodeIDs(m.Attendes)
	if err != nil {
		return fmt.Errorf("store: insert meeting: %w", err)
	}
	leads, err := encodeIDs(m.AttendesLead)
	if err != nil {
		return fmt.Errorf("store: insert meeting: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO meetings (id, agenda, attendes, attendes_lead, location, related, date_time, notes, create_by, created_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID.Hex(), m.Agenda, attendes, leads, m.Location, string(m.Related), m.DateTime, m.Notes,
		m.CreateBy.Hex(), m.Timestamp.UnixMilli(), m.Deleted)
	if err != nil {
		return fmt.Errorf("store: insert meeting: %w", err)
	}
	return nil
}

// FindMeetings returns meetings matching f in no particular order.
func (s *SQLite) FindMeetings(ctx context.Context, f Filter) ([]models.Meeting, error) {
	where, args := meetingWhere(f)
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, agenda, attendes, attendes_lead, location, related, date_time, notes, create_by, created_at, deleted
		FROM meetings`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find meetings: %w", err)
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		var (
			m                       models.Meeting
			id, createBy, related   string
			attendesJSON, leadsJSON string
			createdAt               int64
		)
		if err := rows.Scan(&id, &m.Agenda, &attendesJSON, &leadsJSON, &m.Location, &related,
			&m.DateTime, &m.Notes, &createBy, &createdAt, &m.Deleted); err != nil {
			return nil, fmt.Errorf("store: scan meeting: %w", err)
		}
		if m.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, fmt.Errorf("store: meeting id %q: %w", id, err)
		}
		if m.CreateBy, err = primitive.ObjectIDFromHex(createBy); err != nil {
			return nil, fmt.Errorf("store: meeting creator %q: %w", createBy, err)
		}
		if m.Attendes, err = decodeIDs(attendesJSON); err != nil {
			return nil, fmt.Errorf("store: meeting %s attendes: %w", id, err)
		}
		if m.AttendesLead, err = decodeIDs(leadsJSON); err != nil {
			return nil, fmt.Errorf("store: meeting %s attendesLead: %w", id, err)
		}
		m.Related = models.Related(related)
		m.Timestamp = time.UnixMilli(createdAt).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// SoftDelete flags active meetings matching f as deleted.
func (s *SQLite) SoftDelete(ctx context.Context, f Filter) (int64, error) {
	f.Status = models.StatusActive
	where, args := meetingWhere(f)
	res, err := s.conn.ExecContext(ctx, `UPDATE meetings SET deleted = 1`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("store: soft delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: soft delete: %w", err)
	}
	return n, nil
}

// FindUsers returns the users whose id is in ids.
func (s *SQLite) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, role FROM users WHERE id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var (
			u  models.User
			id string
		)
		if err := rows.Scan(&id, &u.FirstName, &u.LastName, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("store: scan user: %w", err)
		}
		if u.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, fmt.Errorf("store: user id %q: %w", id, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// FindContacts returns the contacts whose id is in ids.
func (s *SQLite) FindContacts(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, email, first_name, last_name FROM contacts WHERE id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var (
			c  models.Contact
			id string
		)
		if err := rows.Scan(&id, &c.Email, &c.FirstName, &c.LastName); err != nil {
			return nil, fmt.Errorf("store: scan contact: %w", err)
		}
		if c.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, fmt.Errorf("store: contact id %q: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindLeads returns the leads whose id is in ids.
func (s *SQLite) FindLeads(ctx context.Context, ids []primitive.ObjectID) ([]models.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, lead_name, email FROM leads WHERE id IN `+in, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find leads: %w", err)
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		var (
			l  models.Lead
			id string
		)
		if err := rows.Scan(&id, &l.LeadName, &l.Email); err != nil {
			return nil, fmt.Errorf("store: scan lead: %w", err)
		}
		if l.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, fmt.Errorf("store: lead id %q: %w", id, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertUser inserts or replaces a user record.
func (s *SQLite) UpsertUser(ctx context.Context, u models.User) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			email      = excluded.email,
			role       = excluded.role
	`, u.ID.Hex(), u.FirstName, u.LastName, u.Email, u.Role)
	if err != nil {
		return fmt.Errorf("store: upsert user: %w", err)
	}
	return nil
}

// UpsertContact inserts or replaces a contact record.
func (s *SQLite) UpsertContact(ctx context.Context, c models.Contact) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO contacts (id, email, first_name, last_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email      = excluded.email,
			first_name = excluded.first_name,
			last_name  = excluded.last_name
	`, c.ID.Hex(), c.Email, c.FirstName, c.LastName)
	if err != nil {
		return fmt.Errorf("store: upsert contact: %w", err)
	}
	return nil
}

// UpsertLead inserts or replaces a lead record.
func (s *SQLite) UpsertLead(ctx context.Context, l models.Lead) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO leads (id, lead_name, email)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lead_name = excluded.lead_name,
			email     = excluded.email
	`, l.ID.Hex(), l.LeadName, l.Email)
	if err != nil {
		return fmt.Errorf("store: upsert lead: %w", err)
	}
	return nil
}

func meetingWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.IDs) > 0 {
		in, inArgs := inClause(f.IDs)
		conds = append(conds, "id IN "+in)
		args = append(args, inArgs...)
	}
	if f.CreateBy != nil {
		conds = append(conds, "create_by = ?")
		args = append(args, f.CreateBy.Hex())
	}
	switch f.Status {
	case models.StatusActive:
		conds = append(conds, "deleted = 0")
	case models.StatusDeleted:
		conds = append(conds, "deleted = 1")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func inClause(ids []primitive.ObjectID) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.Hex()
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")", args
}

func encodeIDs(ids []primitive.ObjectID) (string, error) {
	hex := make([]string, len(ids))
	for i, id := range ids {
		hex[i] = id.Hex()
	}
	b, err := json.Marshal(hex)
	return string(b), err
}

func decodeIDs(raw string) ([]primitive.ObjectID, error) {
	var hex []string
	if err := json.Unmarshal([]byte(raw), &hex); err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(hex))
	for _, h := range hex {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
