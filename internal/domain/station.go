package domain

type Station struct {
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
	// Image is the media-relative path of the uploaded picture, empty when none.
	Image string
}

type TrainType struct {
	ID   int64
	Name string
}

type Crew struct {
	ID        int64
	FirstName string
	LastName  string
}

func (c Crew) FullName() string {
	return c.FirstName + " " + c.LastName
}
