package station

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// stationColumns lists the columns read for a Station. Optional columns are
// coalesced so rows written by older ingest jobs still decode with defaults.
const stationColumns = `
	id, name, COALESCE(operator, ''), COALESCE(address, ''), lon, lat,
	COALESCE(slots_available, 0), COALESCE(total_slots, 0),
	COALESCE(rating, 0), COALESCE(total_reviews, 0),
	COALESCE(battery_swap_available, false), COALESCE(available_batteries, 0),
	COALESCE(connector_types, '{}'), COALESCE(charging_power, ''), COALESCE(price, ''),
	COALESCE(operating_hours, ''), COALESCE(peak_windows, '[]'::jsonb),
	COALESCE(is_operational, true),
	current_occupancy, queue_length, estimated_wait_minutes, occupancy_updated_at,
	created_at, updated_at`

// haversineMeters computes the distance from ($1 lon, $2 lat) to each row.
const haversineMeters = `
	(6371000 * 2 * asin(sqrt(least(1.0,
		power(sin(radians(lat - $2) / 2), 2) +
		cos(radians($2)) * cos(radians(lat)) * power(sin(radians(lon - $1) / 2), 2)
	))))`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL station repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindNear returns stations within range of the query point, nearest first.
func (r *PostgresRepository) FindNear(ctx context.Context, q NearQuery) ([]*Station, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + stationColumns + `
		FROM (
			SELECT *, ` + haversineMeters + ` AS distance_m
			FROM stations
			WHERE (NOT $4 OR COALESCE(is_operational, true))
		) s
		WHERE distance_m <= $3
		ORDER BY distance_m, id
		LIMIT $5
	`

	rows, err := r.pool.Query(ctx, query, q.Point.Lon, q.Point.Lat, q.MaxDistanceMeters, q.OperationalOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("querying nearby stations: %w", err)
	}
	defer rows.Close()

	return scanStations(rows)
}

// Get retrieves a station by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations WHERE id = $1`

	s, err := scanStation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves stations ordered by ID with cursor pagination.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE $1 = '' OR id > $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, opts.Cursor, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations, err := scanStations(rows)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: stations}
	if len(stations) > limit {
		result.Items = stations[:limit]
		result.NextCursor = stations[limit-1].ID
	}
	return result, nil
}

// Create stores a new station.
func (r *PostgresRepository) Create(ctx context.Context, s *Station) error {
	windows, err := json.Marshal(s.PeakWindows)
	if err != nil {
		return fmt.Errorf("encoding peak windows: %w", err)
	}

	query := `
		INSERT INTO stations (
			id, name, operator, address, lon, lat,
			slots_available, total_slots, rating, total_reviews,
			battery_swap_available, available_batteries,
			connector_types, charging_power, price, operating_hours,
			peak_windows, is_operational, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID, s.Name, s.Operator, s.Address, s.Location.Lon, s.Location.Lat,
		s.SlotsAvailable, s.TotalSlots, s.Rating, s.TotalReviews,
		s.BatterySwapAvailable, s.AvailableBatteries,
		s.ConnectorTypes, s.ChargingPower, s.Price, s.OperatingHours,
		windows, s.IsOperational, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// UpdateOccupancy applies a live state update and returns the updated station.
func (r *PostgresRepository) UpdateOccupancy(ctx context.Context, id string, update OccupancyUpdate) (*Station, error) {
	query := `
		UPDATE stations SET
			current_occupancy = COALESCE($2, current_occupancy),
			queue_length = COALESCE($3, queue_length),
			estimated_wait_minutes = COALESCE($4, estimated_wait_minutes),
			slots_available = COALESCE($5, slots_available),
			occupancy_updated_at = $6,
			updated_at = $6
		WHERE id = $1
		RETURNING ` + stationColumns

	s, err := scanStation(r.pool.QueryRow(ctx, query,
		id,
		update.CurrentOccupancy,
		update.QueueLength,
		update.EstimatedWaitMinutes,
		update.SlotsAvailable,
		update.ObservedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return s, nil
}

// scanStations scans all rows into stations.
func scanStations(rows pgx.Rows) ([]*Station, error) {
	var stations []*Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// scanStation scans a single row selected with stationColumns.
func scanStation(row pgx.Row) (*Station, error) {
	var (
		s           Station
		windowsJSON []byte
		occupancy   *int
		queue       *int
		wait        *int
		observedAt  *time.Time
	)

	err := row.Scan(
		&s.ID, &s.Name, &s.Operator, &s.Address, &s.Location.Lon, &s.Location.Lat,
		&s.SlotsAvailable, &s.TotalSlots,
		&s.Rating, &s.TotalReviews,
		&s.BatterySwapAvailable, &s.AvailableBatteries,
		&s.ConnectorTypes, &s.ChargingPower, &s.Price,
		&s.OperatingHours, &windowsJSON,
		&s.IsOperational,
		&occupancy, &queue, &wait, &observedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(windowsJSON, &s.PeakWindows); err != nil {
		return nil, fmt.Errorf("decoding peak windows for station %s: %w", s.ID, err)
	}

	if observedAt != nil {
		s.Occupancy = &Occupancy{
			CurrentOccupancy:     derefInt(occupancy),
			QueueLength:          derefInt(queue),
			EstimatedWaitMinutes: derefInt(wait),
			LastUpdated:          *observedAt,
		}
	}

	return &s, nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
