package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roman-kulish/radio-interferometer/internal/timestream"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// buildBatchInsert appends n copies of the row placeholder to the INSERT statement
func buildBatchInsert(insertSQL, placeholder string, n int) string {
	var sb strings.Builder

	sb.WriteString(insertSQL)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholder)
	}
	return sb.String()
}

func toConfigData(config any) (configData sql.NullString, err error) {
	if config == nil {
		return
	}

	switch c := config.(type) {
	case string:
		configData.String = c

	case []byte:
		configData.String = string(c)

	default:
		var p []byte
		if p, err = json.Marshal(config); err != nil {
			return configData, fmt.Errorf("marshaling config: %w", err)
		}
		configData.String = string(p)
	}

	configData.Valid = true
	return
}

func toObservationData(obs *timestream.Observation, config sql.NullString) *observationData {
	return &observationData{
		Name:            obs.Name,
		StartTime:       obs.StartTime.UTC(),
		IntegrationTime: int64(obs.IntegrationTime),
		Latitude:        toSQLNullFloat(obs.Site.Latitude),
		Longitude:       toSQLNullFloat(obs.Site.Longitude),
		Altitude:        toSQLNullFloat(obs.Site.Altitude),
		Config:          config,
	}
}

func fromObservationData(data *observationData) *timestream.Observation {
	obs := &timestream.Observation{
		ID:              data.ID,
		Name:            data.Name,
		StartTime:       data.StartTime,
		IntegrationTime: time.Duration(data.IntegrationTime),
		Site: timestream.Site{
			Latitude:  fromSQLNullFloat(data.Latitude),
			Longitude: fromSQLNullFloat(data.Longitude),
			Altitude:  fromSQLNullFloat(data.Altitude),
		},
	}
	if data.Config.Valid {
		obs.Config = &data.Config.String
	}
	return obs
}

func toSQLNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromSQLNullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// toSQLPart stores NaN as NULL, which is what SQLite would do anyway
func toSQLPart(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromSQLPart(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func toVisibility(data *visibilityData) complex128 {
	return complex(fromSQLPart(data.Re), fromSQLPart(data.Im))
}
