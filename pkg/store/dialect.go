package store

import (
	"fmt"
	"strings"

	"github.com/chewangneko/qqcallback/pkg/audience"
)

// Dialect selects the SQL flavour for schema and maintenance statements.
// Queries use "?" placeholders, which both flavours accept.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported store driver %q", s)
}

func (d Dialect) driverName() string {
	return string(d)
}

func (d Dialect) createTable(kind audience.Kind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", kind.Table())
	switch d {
	case SQLite:
		b.WriteString("userid INTEGER PRIMARY KEY AUTOINCREMENT, ")
		b.WriteString("openid VARCHAR(70) UNIQUE, ")
		b.WriteString("message_number INTEGER")
	default:
		b.WriteString("userid INT PRIMARY KEY AUTO_INCREMENT, ")
		b.WriteString("openid VARCHAR(70) UNIQUE, ")
		b.WriteString("message_number INT")
	}
	if col := kind.ContextColumn(); col != "" {
		fmt.Fprintf(&b, ", %s VARCHAR(70)", col)
	}
	b.WriteString(")")
	return b.String()
}

// truncate returns the statements that empty kind's table and reset its
// auto-increment counter. SQLite keeps counters in sqlite_sequence, which
// only exists once an AUTOINCREMENT table has been created; withSequence
// reports whether it does.
func (d Dialect) truncate(kind audience.Kind, withSequence bool) []string {
	if d != SQLite {
		return []string{"TRUNCATE TABLE " + kind.Table()}
	}
	stmts := []string{"DELETE FROM " + kind.Table()}
	if withSequence {
		stmts = append(stmts, "DELETE FROM sqlite_sequence WHERE name = '"+kind.Table()+"'")
	}
	return stmts
}

const sqliteSequenceExists = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'"
