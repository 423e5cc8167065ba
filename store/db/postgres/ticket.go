package postgres

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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
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
		WHERE ticket_id = $1
	`, ticketID)

	var ticket store.Ticket
	var tags []byte
	err := row.Scan(
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
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ticket")
	}
	if err := json.Unmarshal(tags, &ticket.Tags); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tags")
	}
	return &ticket, nil
}

func (d *DB) ListTickets(ctx context.Context, find *store.FindTicket) ([]*store.Ticket, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil && find.ConversationID != nil {
		args = append(args, *find.ConversationID)
		where = append(where, "conversation_id = $"+strconv.Itoa(len(args)))
	}
	if find != nil && find.Status != nil {
		args = append(args, *find.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
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
		var ticket store.Ticket
		var tags []byte
		if err := rows.Scan(
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
			return nil, errors.Wrap(err, "failed to scan ticket")
		}
		if err := json.Unmarshal(tags, &ticket.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal tags")
		}
		list = append(list, &ticket)
	}
	return list, rows.Err()
}

func (d *DB) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	result, err := d.db.ExecContext(ctx, "UPDATE ticket SET status = $1 WHERE ticket_id = $2", status, ticketID)
	if err != nil {
		return errors.Wrap(err, "failed to update ticket status")
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Errorf("ticket %s not found", ticketID)
	}
	return nil
}
