package domain

type Route struct {
	ID            int64
	SourceID      int64
	DestinationID int64
	Distance      int
}
