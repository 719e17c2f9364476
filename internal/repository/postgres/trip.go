package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"rental/internal/domain"
	"rental/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `
	id, user_id, vehicle_id, start_time, end_time,
	start_latitude, start_longitude, end_latitude, end_longitude,
	start_station_id, end_station_id,
	distance_km, duration_minutes,
	unlock_fee, rate_per_minute,
	base_fare, distance_fare, time_fare, total_fare,
	status, cancellation_reason, payment_state, rating, review,
	created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var (
		trip          domain.Trip
		endTime       sql.NullTime
		endLat        sql.NullFloat64
		endLon        sql.NullFloat64
		startStation  sql.NullString
		endStation    sql.NullString
		distanceKm    sql.NullFloat64
		durationMin   sql.NullInt64
		baseFare      sql.NullFloat64
		distanceFare  sql.NullFloat64
		timeFare      sql.NullFloat64
		totalFare     sql.NullFloat64
		cancelReason  sql.NullString
		rating        sql.NullInt64
		review        sql.NullString
	)

	err := row.Scan(
		&trip.ID, &trip.UserID, &trip.VehicleID, &trip.StartTime, &endTime,
		&trip.StartLatitude, &trip.StartLongitude, &endLat, &endLon,
		&startStation, &endStation,
		&distanceKm, &durationMin,
		&trip.UnlockFee, &trip.RatePerMinute,
		&baseFare, &distanceFare, &timeFare, &totalFare,
		&trip.Status, &cancelReason, &trip.PaymentState, &rating, &review,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		trip.EndTime = endTime.Time
	}
	trip.EndLatitude = endLat.Float64
	trip.EndLongitude = endLon.Float64
	trip.StartStationID = startStation.String
	trip.EndStationID = endStation.String
	trip.DistanceKm = distanceKm.Float64
	trip.DurationMinutes = int(durationMin.Int64)
	trip.BaseFare = baseFare.Float64
	trip.DistanceFare = distanceFare.Float64
	trip.TimeFare = timeFare.Float64
	trip.TotalFare = totalFare.Float64
	trip.CancellationReason = cancelReason.String
	trip.Rating = int(rating.Int64)
	trip.Review = review.String

	return &trip, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

// CreateActive persists a new trip in active status. The partial unique index
// trips_one_active_per_user makes concurrent inserts for the same user lose
// with a unique violation, which is surfaced as ErrActiveTripExists.
func (r *TripRepository) CreateActive(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (
			id, user_id, vehicle_id, start_time,
			start_latitude, start_longitude, start_station_id,
			unlock_fee, rate_per_minute, status, payment_state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRowContext(ctx, query,
		trip.ID,
		trip.UserID,
		trip.VehicleID,
		trip.StartTime,
		trip.StartLatitude,
		trip.StartLongitude,
		nullStr(trip.StartStationID),
		trip.UnlockFee,
		trip.RatePerMinute,
		domain.TripStatusActive,
		domain.PaymentStateUnbilled,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrActiveTripExists
		}
		return err
	}

	trip.Status = domain.TripStatusActive
	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetActiveByUser retrieves the user's active trip.
// Returns nil if no active trip exists.
func (r *TripRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = $1 AND status = $2
		ORDER BY start_time DESC
		LIMIT 1
	`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, userID, domain.TripStatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return trip, nil
}

// CompleteActive transitions an active trip to completed, writing end time,
// end position, distance, duration and the fare breakdown in one statement.
// The status guard in the WHERE clause keeps the transition monotone.
func (r *TripRepository) CompleteActive(ctx context.Context, tripID string, c repository.Completion) (*domain.Trip, error) {
	query := `
		UPDATE trips
		SET end_time = $1,
		    end_latitude = $2,
		    end_longitude = $3,
		    end_station_id = $4,
		    distance_km = $5,
		    duration_minutes = $6,
		    base_fare = $7,
		    distance_fare = $8,
		    time_fare = $9,
		    total_fare = $10,
		    status = $11,
		    updated_at = now()
		WHERE id = $12 AND status = $13
		RETURNING ` + tripColumns

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query,
		c.EndTime,
		c.EndLatitude,
		c.EndLongitude,
		nullStr(c.EndStationID),
		c.DistanceKm,
		c.DurationMinutes,
		c.BaseFare,
		c.DistanceFare,
		c.TimeFare,
		c.TotalFare,
		domain.TripStatusCompleted,
		tripID,
		domain.TripStatusActive,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.guardFailure(ctx, tripID)
		}
		return nil, err
	}
	return trip, nil
}

// CancelActive transitions an active trip to cancelled.
func (r *TripRepository) CancelActive(ctx context.Context, tripID, reason string) error {
	query := `
		UPDATE trips
		SET status = $1,
		    cancellation_reason = $2,
		    end_time = now(),
		    updated_at = now()
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.TripStatusCancelled, reason, tripID, domain.TripStatusActive)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.guardFailure(ctx, tripID)
	}
	return nil
}

// guardFailure distinguishes a missing trip from one in the wrong status
// after a guarded UPDATE matched no rows.
func (r *TripRepository) guardFailure(ctx context.Context, tripID string) error {
	var status domain.TripStatus
	err := r.q.QueryRowContext(ctx, `SELECT status FROM trips WHERE id = $1`, tripID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return repository.ErrNotActive
}

// AttachRating sets rating and review on a completed trip. Re-rating
// overwrites the previous values.
func (r *TripRepository) AttachRating(ctx context.Context, tripID string, rating int, review string) error {
	query := `
		UPDATE trips
		SET rating = $1, review = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		rating, nullStr(review), tripID, domain.TripStatusCompleted)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var status domain.TripStatus
		err := r.q.QueryRowContext(ctx, `SELECT status FROM trips WHERE id = $1`, tripID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		return repository.ErrNotCompleted
	}
	return nil
}

// SetPaymentState records the billing outcome of a completed trip.
func (r *TripRepository) SetPaymentState(ctx context.Context, tripID string, state domain.PaymentState) error {
	query := `UPDATE trips SET payment_state = $1, updated_at = now() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, state, tripID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's trips, newest first.
func (r *TripRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Trip, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrips(rows)
}

// ListBillingPending returns completed trips awaiting operator billing
// follow-up, oldest first.
func (r *TripRepository) ListBillingPending(ctx context.Context) ([]*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE payment_state = $1
		ORDER BY updated_at
	`

	rows, err := r.q.QueryContext(ctx, query, domain.PaymentStateBillingPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrips(rows)
}

func collectTrips(rows *sql.Rows) ([]*domain.Trip, error) {
	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// AddLocation appends a breadcrumb. Breadcrumbs are insert-only.
func (r *TripRepository) AddLocation(ctx context.Context, loc *domain.TripLocation) error {
	query := `
		INSERT INTO trip_locations (id, trip_id, latitude, longitude, speed, battery_level, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		loc.ID,
		loc.TripID,
		loc.Latitude,
		loc.Longitude,
		nullInt(loc.Speed),
		nullInt(loc.BatteryLevel),
		loc.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// GetLocations returns a trip's breadcrumbs in timestamp order.
func (r *TripRepository) GetLocations(ctx context.Context, tripID string) ([]*domain.TripLocation, error) {
	query := `
		SELECT id, trip_id, latitude, longitude, speed, battery_level, timestamp
		FROM trip_locations
		WHERE trip_id = $1
		ORDER BY timestamp
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []*domain.TripLocation
	for rows.Next() {
		var loc domain.TripLocation
		var speed, battery sql.NullInt64
		if err := rows.Scan(&loc.ID, &loc.TripID, &loc.Latitude, &loc.Longitude, &speed, &battery, &loc.Timestamp); err != nil {
			return nil, err
		}
		loc.Speed = int(speed.Int64)
		loc.BatteryLevel = int(battery.Int64)
		locs = append(locs, &loc)
	}
	return locs, rows.Err()
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
