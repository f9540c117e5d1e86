package memory

import "github.com/hashicorp/go-memdb"

const (
	tableStations   = "stations"
	tableTrainTypes = "train_types"
	tableTrains     = "trains"
	tableRoutes     = "routes"
	tableCrew       = "crew"
	tableTrips      = "trips"
	tableOrders     = "orders"
	tableTickets    = "tickets"
)

func idIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: "id", Unique: true, Indexer: &memdb.IntFieldIndex{Field: "ID"}}
}

func nameIndex() *memdb.IndexSchema {
	return &memdb.IndexSchema{Name: "name", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Name"}}
}

// schema mirrors the unique constraints of the postgres migration. memdb
// does not reject duplicates on its own, so writers look a key up in the
// same write transaction before inserting it.
var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableStations: {
			Name:    tableStations,
			Indexes: map[string]*memdb.IndexSchema{"id": idIndex(), "name": nameIndex()},
		},
		tableTrainTypes: {
			Name:    tableTrainTypes,
			Indexes: map[string]*memdb.IndexSchema{"id": idIndex(), "name": nameIndex()},
		},
		tableTrains: {
			Name:    tableTrains,
			Indexes: map[string]*memdb.IndexSchema{"id": idIndex(), "name": nameIndex()},
		},
		tableRoutes: {
			Name:    tableRoutes,
			Indexes: map[string]*memdb.IndexSchema{"id": idIndex()},
		},
		tableCrew: {
			Name:    tableCrew,
			Indexes: map[string]*memdb.IndexSchema{"id": idIndex()},
		},
		tableTrips: {
			Name:    tableTrips,
			Indexes: map[string]*memdb.IndexSchema{"id": idIndex()},
		},
		tableOrders: {
			Name: tableOrders,
			Indexes: map[string]*memdb.IndexSchema{
				"id":   idIndex(),
				"user": {Name: "user", Indexer: &memdb.IntFieldIndex{Field: "UserID"}},
			},
		},
		tableTickets: {
			Name: tableTickets,
			Indexes: map[string]*memdb.IndexSchema{
				"id":   idIndex(),
				"trip": {Name: "trip", Indexer: &memdb.IntFieldIndex{Field: "TripID"}},
				"seat": {
					Name:   "seat",
					Unique: true,
					Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
						&memdb.IntFieldIndex{Field: "TripID"},
						&memdb.IntFieldIndex{Field: "Cargo"},
						&memdb.IntFieldIndex{Field: "Seat"},
					}},
				},
			},
		},
	},
}
