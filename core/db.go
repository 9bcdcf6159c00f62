package core

// DBOrdering is a single ORDER BY term requested by an API client.
// Repositories validate Field against their own allow-lists before use.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}
