package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"userdesk.org/internal/activity"
)

var _ activity.Store = (*Store)(nil)

func (s *Store) Insert(ctx context.Context, e *activity.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into activity_log (id, user_id, action, details, ip_address, user_agent, ts)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.UserID, string(e.Action), e.Details, e.IPAddress, e.UserAgent, e.Timestamp)
	return err
}

func (s *Store) Find(ctx context.Context, filter activity.Filter, page activity.Page) ([]activity.Entry, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("a.user_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		conds = append(conds, fmt.Sprintf("a.action = $%d", len(args)))
	}
	if filter.Start != nil {
		args = append(args, *filter.Start)
		conds = append(conds, fmt.Sprintf("a.ts >= $%d", len(args)))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		conds = append(conds, fmt.Sprintf("a.ts <= $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " where " + strings.Join(conds, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from activity_log a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`
		select a.id, a.user_id, u.full_name, u.email, a.action, a.details, a.ip_address, a.user_agent, a.ts
		from activity_log a
		left join users u on u.id = a.user_id%s
		order by a.ts desc
		limit $%d offset $%d
	`, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []activity.Entry
	for rows.Next() {
		var (
			e         activity.Entry
			action    string
			userName  sql.NullString
			userEmail sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &userName, &userEmail, &action,
			&e.Details, &e.IPAddress, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		e.Action = activity.Action(action)
		e.UserName = userName.String
		e.UserEmail = userEmail.String
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *Store) Aggregate(ctx context.Context, since time.Time) (int, int, []activity.ActionCount, error) {
	var total, uniqueUsers int
	err := s.db.QueryRowContext(ctx, `
		select count(*), count(distinct user_id) from activity_log where ts >= $1
	`, since).Scan(&total, &uniqueUsers)
	if err != nil {
		return 0, 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select action, count(*)
		from activity_log
		where ts >= $1
		group by action
		order by count(*) desc, action asc
	`, since)
	if err != nil {
		return 0, 0, nil, err
	}
	defer rows.Close()

	var breakdown []activity.ActionCount
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return 0, 0, nil, err
		}
		breakdown = append(breakdown, activity.ActionCount{Action: activity.Action(action), Count: count})
	}
	return total, uniqueUsers, breakdown, rows.Err()
}
