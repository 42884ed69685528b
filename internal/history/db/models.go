package db

type Check struct {
	ID        string
	CheckedAt int64
	Ok        bool
	Message   string
	Notified  int64
}

type CheckEvent struct {
	CheckID   string
	Position  int64
	Name      string
	Location  string
	EventDate string
	Status    string
	Notified  bool
}
