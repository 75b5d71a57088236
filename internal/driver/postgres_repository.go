package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

const driverColumns = `
	id, name, email, COALESCE(phone, ''), password_hash, vehicle,
	location_lon, location_lat, COALESCE(location_address, ''), location_updated_at,
	COALESCE(preferred_connector, ''), max_distance_km, prefer_battery_swap,
	created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL driver repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a driver.
func (r *PostgresRepository) Create(ctx context.Context, d *Driver) error {
	vehicle, err := json.Marshal(d.Vehicle)
	if err != nil {
		return fmt.Errorf("marshaling vehicle: %w", err)
	}

	var phone *string
	if d.Phone != "" {
		phone = &d.Phone
	}

	query := `
		INSERT INTO drivers (
			id, name, email, phone, password_hash, vehicle,
			preferred_connector, max_distance_km, prefer_battery_swap,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		d.ID, d.Name, d.Email, phone, d.PasswordHash, vehicle,
		d.Preferences.PreferredConnector, d.Preferences.MaxDistanceKm, d.Preferences.PreferBatterySwap,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDriverExists
		}
		return fmt.Errorf("inserting driver: %w", err)
	}
	return nil
}

// Get returns a driver by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Driver, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	return scanDriver(row)
}

// FindByEmail returns a driver by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Driver, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE email = $1`, email)
	return scanDriver(row)
}

// UpdateLocation replaces the driver's current location.
func (r *PostgresRepository) UpdateLocation(ctx context.Context, id string, loc CurrentLocation) (*Driver, error) {
	query := `
		UPDATE drivers SET
			location_lon = $2,
			location_lat = $3,
			location_address = NULLIF($4, ''),
			location_updated_at = $5,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + driverColumns
	row := r.pool.QueryRow(ctx, query, id, loc.Point.Lon, loc.Point.Lat, loc.Address, loc.UpdatedAt)
	return scanDriver(row)
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var (
		d          Driver
		vehicle    []byte
		lon, lat   *float64
		address    string
		locUpdated *time.Time
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Email, &d.Phone, &d.PasswordHash, &vehicle,
		&lon, &lat, &address, &locUpdated,
		&d.Preferences.PreferredConnector, &d.Preferences.MaxDistanceKm, &d.Preferences.PreferBatterySwap,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("scanning driver: %w", err)
	}

	if len(vehicle) > 0 && string(vehicle) != "null" {
		var v VehicleInfo
		if err := json.Unmarshal(vehicle, &v); err != nil {
			return nil, fmt.Errorf("decoding vehicle: %w", err)
		}
		d.Vehicle = &v
	}
	if lon != nil && lat != nil && locUpdated != nil {
		d.CurrentLocation = &CurrentLocation{
			Point:     geo.Point{Lon: *lon, Lat: *lat},
			Address:   address,
			UpdatedAt: *locUpdated,
		}
	}
	return &d, nil
}
