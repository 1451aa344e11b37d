package domain

import "time"

// now возвращает текущее время в UTC с точностью до микросекунды:
// с такой точностью время хранит PostgreSQL.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
