package tenantdb

import "time"

// Typed accessors for Row values. Storage drivers hand back NULL as nil and
// integers as int32 or int64 depending on the column; these helpers smooth
// that over so repository mappers stay flat.

// RowString returns row[col] as a string, or "" when absent or NULL.
func RowString(row Row, col string) string {
	s, _ := row[col].(string)
	return s
}

// RowBool returns row[col] as a bool, or false when absent or NULL.
func RowBool(row Row, col string) bool {
	b, _ := row[col].(bool)
	return b
}

// RowInt64 returns row[col] as an int64, or 0 when absent or NULL.
func RowInt64(row Row, col string) int64 {
	switch n := row[col].(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// RowTime returns row[col] as a time.Time, or the zero time when absent or
// NULL.
func RowTime(row Row, col string) time.Time {
	t, _ := row[col].(time.Time)
	return t
}

// RowTimePtr returns row[col] as a *time.Time, or nil when absent or NULL.
func RowTimePtr(row Row, col string) *time.Time {
	if t, ok := row[col].(time.Time); ok {
		return &t
	}
	return nil
}
