package domain

type Train struct {
	ID            int64
	Name          string
	CargoNum      int
	PlacesInCargo int
	TrainTypeID   *int64
}

// Capacity is the number of sellable seats on the train.
func (t Train) Capacity() int {
	return t.CargoNum * t.PlacesInCargo
}
