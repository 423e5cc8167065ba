package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/deskpilot/deskpilot/store"
)

func (d *DB) CreateTicket(ctx context.Context, ticket *store.Ticket) error {
	tags, err := json.Marshal(ticket.Tags)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tags")
	}

	stmt := `
		INSERT INTO ticket (
			ticket_id, conversation_id, status, category, priority,
			sentiment, tags, summary, transcript, created_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		ticket.TicketID,
		ticket.ConversationID,
		ticket.Status,
		ticket.Category,
		ticket.Priority,
		ticket.Sentiment,
		string(tags),
		ticket.Summary,
		ticket.Transcript,
		ticket.CreatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to create ticket")
	}
	return nil
}

func (d *DB) GetTicket(ctx context.Context, ticketID string) (*store.Ticket, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT ticket_id, conversation_id, status, category, priority,
			sentiment, tags, summary, transcript, created_ts
		FROM ticket
		WHERE ticket_id = ?
	`, ticketID)

	ticket, err := scanTicket(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (d *DB) ListTickets(ctx context.Context, find *store.FindTicket) ([]*store.Ticket, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil && find.ConversationID != nil {
		where, args = append(where, "conversation_id = ?"), append(args, *find.ConversationID)
	}
	if find != nil && find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}
	query := `
		SELECT ticket_id, conversation_id, status, category, priority,
			sentiment, tags, summary, transcript, created_ts
		FROM ticket
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find != nil && find.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tickets")
	}
	defer rows.Close()

	list := []*store.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, ticket)
	}
	return list, rows.Err()
}

func (d *DB) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	result, err := d.db.ExecContext(ctx, "UPDATE ticket SET status = ? WHERE ticket_id = ?", status, ticketID)
	if err != nil {
		return errors.Wrap(err, "failed to update ticket status")
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Errorf("ticket %s not found", ticketID)
	}
	return nil
}

func scanTicket(scan func(dest ...any) error) (*store.Ticket, error) {
	var ticket store.Ticket
	var tags string
	if err := scan(
		&ticket.TicketID,
		&ticket.ConversationID,
		&ticket.Status,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Sentiment,
		&tags,
		&ticket.Summary,
		&ticket.Transcript,
		&ticket.CreatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "failed to scan ticket")
	}
	if err := json.Unmarshal([]byte(tags), &ticket.Tags); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tags")
	}
	return &ticket, nil
}
