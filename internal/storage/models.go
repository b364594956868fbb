package storage

import (
	"database/sql"
	"time"
)

type observationData struct {
	ID              int64
	Name            string
	StartTime       time.Time
	IntegrationTime int64
	Latitude        sql.NullFloat64
	Longitude       sql.NullFloat64
	Altitude        sql.NullFloat64
	Config          sql.NullString
}

type visibilityData struct {
	TimeIndex int
	Timestamp time.Time
	FreqIndex int
	Re        sql.NullFloat64
	Im        sql.NullFloat64
	Flagged   bool
}
