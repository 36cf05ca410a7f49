package sqlstore

import (
	"fmt"
	"strings"
	"time"
)

// timeLayouts covers the textual timestamp encodings produced by the
// supported drivers when a column is not returned as time.Time.
// modernc.org/sqlite keeps DATETIME values as TEXT and returns a string when
// the stored text is not in one of its own layouts, as with rows an external
// writer filled using CURRENT_TIMESTAMP or ISO-8601 text. go-sql-driver/mysql
// returns DATETIME as []byte unless the DSN sets parseTime=true, which is
// left to the operator. pgx and go-mssqldb always return time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// nullTime scans a nullable timestamp from any supported driver.
type nullTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullTime) Scan(value any) error {
	n.Time, n.Valid = time.Time{}, false

	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v, true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func (n *nullTime) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Ptr returns nil for NULL and a copy of the time otherwise.
func (n nullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
