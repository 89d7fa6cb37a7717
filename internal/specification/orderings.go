package specification

// Desc orders by column descending.
func Desc(column string) Ordering {
	return OrderingFunc(func(Binder) string { return column + " DESC" })
}

// Asc orders by column ascending.
func Asc(column string) Ordering {
	return OrderingFunc(func(Binder) string { return column + " ASC" })
}

// RankFirst puts rows whose column equals value ahead of all others.
func RankFirst(column string, value interface{}) Ordering {
	return OrderingFunc(func(bind Binder) string {
		return "CASE WHEN " + column + " = " + bind(value) + " THEN 1 ELSE 0 END DESC"
	})
}
