package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
	"github.com/chewangneko/qqcallback/pkg/logger"
)

// Identity is what the store needs to know about a message sender.
type Identity interface {
	Audience() audience.Kind
	UserOpenID() string
	ContextID() string
}

// BaseUser is one row of a user table. ChannelID is only set for channel
// users and GroupID only for group users.
type BaseUser struct {
	UserID        int64
	OpenID        string
	MessageNumber int
	ChannelID     *string
	GroupID       *string
}

var errNilIdentity = errors.New("identity must not be nil")

func tableFor(id Identity) (audience.Kind, error) {
	if id == nil {
		return "", errNilIdentity
	}
	kind := id.Audience()
	if !kind.Valid() {
		return "", fmt.Errorf("no user table for audience %q", kind)
	}
	return kind, nil
}

// InitTable creates kind's table when missing and reports how long it took.
func (d *Database) InitTable(ctx context.Context, kind audience.Kind) (time.Duration, error) {
	if !kind.Valid() {
		return 0, boterr.Wrap(fmt.Errorf("no user table for audience %q", kind))
	}
	start := time.Now()
	if _, err := d.db.ExecContext(ctx, d.dialect.createTable(kind)); err != nil {
		return 0, boterr.Wrap(err)
	}
	return time.Since(start), nil
}

func (d *Database) InitChannelTable(ctx context.Context) (time.Duration, error) {
	return d.InitTable(ctx, audience.Channel)
}

func (d *Database) InitGroupTable(ctx context.Context) (time.Duration, error) {
	return d.InitTable(ctx, audience.Group)
}

func (d *Database) InitDirectTable(ctx context.Context) (time.Duration, error) {
	return d.InitTable(ctx, audience.Direct)
}

// InitTables creates all three user tables and returns the total time.
func (d *Database) InitTables(ctx context.Context) (time.Duration, error) {
	var total time.Duration
	for _, kind := range audience.All() {
		took, err := d.InitTable(ctx, kind)
		if err != nil {
			return total, err
		}
		total += took
	}
	logger.DebugCF("store", "User tables ready", map[string]interface{}{
		"took": total.String(),
	})
	return total, nil
}

// InsertUserInfo records the sender on first sight and returns their row.
// Later calls for the same open id return the stored row unchanged.
func (d *Database) InsertUserInfo(ctx context.Context, id Identity) (*BaseUser, error) {
	kind, err := tableFor(id)
	if err != nil {
		return nil, boterr.Wrap(err)
	}

	existing, err := d.GetUserInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user := &BaseUser{OpenID: id.UserOpenID(), MessageNumber: 1}
	query := "INSERT INTO " + kind.Table() + " (openid, message_number) VALUES (?, ?)"
	args := []any{user.OpenID, user.MessageNumber}
	if col, ctxID := kind.ContextColumn(), id.ContextID(); col != "" && ctxID != "" {
		query = "INSERT INTO " + kind.Table() + " (openid, message_number, " + col + ") VALUES (?, ?, ?)"
		args = append(args, ctxID)
		user.setContext(kind, ctxID)
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, boterr.Wrap(err)
	}
	if user.UserID, err = res.LastInsertId(); err != nil {
		return nil, boterr.Wrap(err)
	}

	logger.DebugCF("store", "Recorded new user", map[string]interface{}{
		"table":  kind.Table(),
		"openid": user.OpenID,
		"userid": user.UserID,
	})
	return user, nil
}

// GetUserInfo returns the sender's row, or nil when they were never recorded.
func (d *Database) GetUserInfo(ctx context.Context, id Identity) (*BaseUser, error) {
	kind, err := tableFor(id)
	if err != nil {
		return nil, boterr.Wrap(err)
	}

	row := d.db.QueryRowContext(ctx, selectUsers(kind)+" WHERE openid = ?", id.UserOpenID())
	user, err := scanUser(kind, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, boterr.Wrap(err)
	}
	return user, nil
}

// GetGroupUsers lists everyone recorded in the sender's group, oldest first.
// It returns an empty list for channel and direct senders.
func (d *Database) GetGroupUsers(ctx context.Context, id Identity) ([]BaseUser, error) {
	kind, err := tableFor(id)
	if err != nil {
		return nil, boterr.Wrap(err)
	}
	if kind != audience.Group {
		return []BaseUser{}, nil
	}

	rows, err := d.db.QueryContext(ctx,
		selectUsers(kind)+" WHERE group_id = ? ORDER BY userid", id.ContextID())
	if err != nil {
		return nil, boterr.Wrap(err)
	}
	defer rows.Close()

	users := []BaseUser{}
	for rows.Next() {
		user, err := scanUser(kind, rows)
		if err != nil {
			return nil, boterr.Wrap(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, boterr.Wrap(err)
	}
	return users, nil
}

// ClearTables empties all user tables and resets their id counters.
// A failure leaves earlier tables already cleared.
func (d *Database) ClearTables(ctx context.Context) error {
	withSequence, err := d.hasSequenceTable(ctx)
	if err != nil {
		return err
	}
	for _, kind := range audience.All() {
		for _, stmt := range d.dialect.truncate(kind, withSequence) {
			if _, err := d.db.ExecContext(ctx, stmt); err != nil {
				return boterr.Wrap(err)
			}
		}
	}
	logger.WarnC("store", "User tables cleared")
	return nil
}

func (d *Database) hasSequenceTable(ctx context.Context) (bool, error) {
	if d.dialect != SQLite {
		return false, nil
	}
	var n int
	if err := d.db.QueryRowContext(ctx, sqliteSequenceExists).Scan(&n); err != nil {
		return false, boterr.Wrap(err)
	}
	return n > 0, nil
}

func selectUsers(kind audience.Kind) string {
	cols := "userid, openid, message_number"
	if col := kind.ContextColumn(); col != "" {
		cols += ", " + col
	}
	return "SELECT " + cols + " FROM " + kind.Table()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(kind audience.Kind, row rowScanner) (*BaseUser, error) {
	var (
		user   BaseUser
		openID sql.NullString
		count  sql.NullInt64
		ctxID  sql.NullString
	)
	dest := []any{&user.UserID, &openID, &count}
	if kind.ContextColumn() != "" {
		dest = append(dest, &ctxID)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	user.OpenID = openID.String
	user.MessageNumber = int(count.Int64)
	if ctxID.Valid {
		user.setContext(kind, ctxID.String)
	}
	return &user, nil
}

func (u *BaseUser) setContext(kind audience.Kind, id string) {
	switch kind {
	case audience.Channel:
		u.ChannelID = &id
	case audience.Group:
		u.GroupID = &id
	}
}
