package domain

// ValidateTicket checks that cargo and seat address a real place on the train.
// It is called when an order is accepted and again inside the order
// transaction right before the ticket row is written.
func ValidateTicket(cargo, seat int, train Train) error {
	if cargo < 1 || cargo > train.CargoNum {
		return NewValidationError("cargo", "number must be in available range: (1, %d)", train.CargoNum)
	}
	if seat < 1 || seat > train.PlacesInCargo {
		return NewValidationError("seat", "number must be in available range: (1, %d)", train.PlacesInCargo)
	}
	return nil
}
