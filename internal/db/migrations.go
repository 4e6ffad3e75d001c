package db

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// The event and trip tables belong to the ingestion side. Migrations only
// add the indexes the report queries rely on, and only when the table is
// there.
type migration struct {
	table string
	stmt  string
}

var migrations = []migration{
	{table: "drivers", stmt: `CREATE INDEX IF NOT EXISTS idx_drivers_event_date ON drivers ("EventDate")`},
	{table: "drivers", stmt: `CREATE INDEX IF NOT EXISTS idx_drivers_driver_date ON drivers ("LinkedName_1", "EventDate")`},
	{table: "drivers", stmt: `CREATE INDEX IF NOT EXISTS idx_drivers_asset_date ON drivers ("AssetName", "EventDate")`},
	{table: "drivers", stmt: `CREATE INDEX IF NOT EXISTS idx_drivers_owner ON drivers ("OwnerName")`},
	{table: "vehicles", stmt: `CREATE INDEX IF NOT EXISTS idx_vehicles_event_date ON vehicles ("EventDate")`},
	{table: "vehicles", stmt: `CREATE INDEX IF NOT EXISTS idx_vehicles_asset_date ON vehicles ("AssetName", "EventDate")`},
	{table: "vehicles", stmt: `CREATE INDEX IF NOT EXISTS idx_vehicles_driver ON vehicles ("LinkedName_1")`},
	{table: "vehicles", stmt: `CREATE INDEX IF NOT EXISTS idx_vehicles_alert ON vehicles ("AlertName")`},
	{table: "trips_data", stmt: `CREATE INDEX IF NOT EXISTS idx_trips_data_asset_window ON trips_data (asset, start, "end")`},
	{table: "trips_data", stmt: `CREATE INDEX IF NOT EXISTS idx_trips_data_driver_start ON trips_data (driver, start)`},
	{table: "driver_rating", stmt: `CREATE INDEX IF NOT EXISTS idx_driver_rating_asset_date ON driver_rating ("assetName", "dateStart")`},
}

func runMigrations(db *gorm.DB, log zerolog.Logger) error {
	migrator := db.Migrator()
	for i, m := range migrations {
		if !migrator.HasTable(m.table) {
			log.Debug().Str("table", m.table).Msg("table missing, index skipped")
			continue
		}
		if err := db.Exec(m.stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
