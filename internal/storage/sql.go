package storage

import (
	_ "embed"
)

const (
	insertObservationSQL = `
INSERT INTO observations (
                          name,
                          start_time,
                          integration_time,
                          latitude,
                          longitude,
                          altitude,
                          config)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertFrequenciesSQL = `
INSERT INTO frequencies (observation_id,
                         freq_idx,
                         frequency)
VALUES `

	selectObservationSQL = `
SELECT
    id,
    name,
    start_time,
    integration_time,
    latitude,
    longitude,
    altitude,
    config
FROM observations
WHERE
    id = ?`

	selectObservationsSQL = `
SELECT
    id,
    name,
    start_time,
    integration_time,
    latitude,
    longitude,
    altitude,
    config
FROM observations
ORDER BY start_time, id`

	selectFrequenciesSQL = `
SELECT
    frequency
FROM frequencies
WHERE
    observation_id = ?
ORDER BY freq_idx`

	insertNoiseSourceSQL = `
INSERT OR REPLACE INTO noise_source (observation_id,
                                     time_idx,
                                     timestamp,
                                     noise_on)
VALUES `

	selectNoiseSourceSQL = `
SELECT
    time_idx,
    noise_on
FROM noise_source
WHERE
    observation_id = ?
    AND time_idx BETWEEN ? AND ?
ORDER BY time_idx`

	insertVisibilitySQL = `
INSERT OR REPLACE INTO visibilities (observation_id,
                                     feed1,
                                     feed2,
                                     pol,
                                     time_idx,
                                     timestamp,
                                     freq_idx,
                                     re,
                                     im,
                                     flagged)
VALUES `

	selectBaselinesSQL = `
SELECT DISTINCT
    feed1,
    feed2,
    pol
FROM visibilities
WHERE
    observation_id = ?
ORDER BY feed1, feed2, pol`

	selectVisibilitiesSQL = `
SELECT
    time_idx,
    timestamp,
    freq_idx,
    re,
    im,
    flagged
FROM visibilities
WHERE
    observation_id = ?
    AND feed1 = ?
    AND feed2 = ?
    AND pol = ?
    AND freq_idx BETWEEN ? AND ?
ORDER BY time_idx, freq_idx`
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)
