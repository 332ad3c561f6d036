// Package store persists journeys and their camps in SQL. SQLite (modernc)
// and Postgres (pgx) share one schema; queries are written with ? placeholders
// and rebound for Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dpup/journeys/server/internal/lib/geo"
	"github.com/dpup/journeys/server/internal/lib/journey"
)

// Supported values for Config.Driver, matching the database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config selects the database
type Config struct {
	Driver string `koanf:"driver" yaml:"driver"`

	// DSN is a file path (or ":memory:") for sqlite and a connection URL for pgx
	DSN string `koanf:"dsn" yaml:"dsn"`
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements journey.Store and journey.Transactor
type Store struct {
	db     *sql.DB
	q      querier
	driver string
	now    func() time.Time
}

var (
	_ journey.Store      = (*Store)(nil)
	_ journey.Transactor = (*Store)(nil)
)

// Open connects to the database and applies pending migrations
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := cfg.DSN

	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "journeys.db"
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("database dsn is required for driver %s", driver)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening the database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases alive and serialises writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := runMigrations(db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	logging.Infow(ctx, "Store: database ready", "driver", driver)

	return &Store{db: db, q: db, driver: driver, now: time.Now}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTransaction runs fn against a Store bound to one transaction. Nested
// calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx journey.Store) error) (err error) {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Errorw(ctx, "Store: rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(ctx, &Store{db: s.db, q: tx, driver: s.driver, now: s.now}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateJourney inserts a journey and returns its id
func (s *Store) CreateJourney(ctx context.Context, name string, route []geo.RouteCoordinate) (string, error) {
	encoded, err := encodeRoute(route)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := s.now().UnixMilli()
	_, err = s.exec(ctx,
		`INSERT INTO journeys (id, name, route, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, encoded, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create journey: %w", err)
	}
	return id, nil
}

// GetRouteAndWaypoints loads a journey's route and camps, camps in day order
func (s *Store) GetRouteAndWaypoints(ctx context.Context, journeyID string) (*journey.RouteAndWaypoints, error) {
	var name, encoded string
	err := s.queryRow(ctx, `SELECT name, route FROM journeys WHERE id = ?`, journeyID).Scan(&name, &encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journey.ErrJourneyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load journey %s: %w", journeyID, err)
	}

	var route []geo.RouteCoordinate
	if err := json.Unmarshal([]byte(encoded), &route); err != nil {
		return nil, fmt.Errorf("failed to decode route of journey %s: %w", journeyID, err)
	}

	rows, err := s.query(ctx,
		`SELECT id, journey_id, name, day_number, lon, lat, elevation, notes, highlights, route_distance_km, route_point_index
		 FROM waypoints WHERE journey_id = ? ORDER BY day_number, id`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load waypoints of journey %s: %w", journeyID, err)
	}
	defer rows.Close()

	waypoints := []journey.Waypoint{}
	for rows.Next() {
		w, err := scanWaypoint(rows)
		if err != nil {
			return nil, err
		}
		waypoints = append(waypoints, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read waypoints of journey %s: %w", journeyID, err)
	}

	return &journey.RouteAndWaypoints{
		JourneyID: journeyID,
		Name:      name,
		Route:     route,
		Waypoints: waypoints,
	}, nil
}

func (s *Store) CreateWaypoint(ctx context.Context, fields journey.WaypointFields) (*journey.Waypoint, error) {
	var exists int
	err := s.queryRow(ctx, `SELECT 1 FROM journeys WHERE id = ?`, fields.JourneyID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journey.ErrJourneyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check journey %s: %w", fields.JourneyID, err)
	}

	highlights, err := encodeHighlights(fields.Highlights)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := s.now().UnixMilli()
	_, err = s.exec(ctx,
		`INSERT INTO waypoints (id, journey_id, name, day_number, lon, lat, elevation, notes, highlights,
		 route_distance_km, route_point_index, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fields.JourneyID, fields.Name, fields.DayNumber,
		fields.Coordinates.Lon(), fields.Coordinates.Lat(), fields.Elevation,
		fields.Notes, highlights, nullFloat(fields.RouteDistanceKm), nullInt(fields.RoutePointIndex),
		now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create waypoint: %w", err)
	}

	w := journey.Waypoint{
		ID:              id,
		JourneyID:       fields.JourneyID,
		Name:            fields.Name,
		DayNumber:       fields.DayNumber,
		Coordinates:     fields.Coordinates,
		Elevation:       fields.Elevation,
		Notes:           fields.Notes,
		Highlights:      fields.Highlights,
		RouteDistanceKm: fields.RouteDistanceKm,
		RoutePointIndex: fields.RoutePointIndex,
	}
	w = w.Clone()
	return &w, nil
}

func (s *Store) UpdateWaypoint(ctx context.Context, id string, fields journey.WaypointFields) error {
	highlights, err := encodeHighlights(fields.Highlights)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx,
		`UPDATE waypoints SET name = ?, day_number = ?, lon = ?, lat = ?, elevation = ?, notes = ?,
		 highlights = ?, route_distance_km = ?, route_point_index = ?, updated_at = ?
		 WHERE id = ?`,
		fields.Name, fields.DayNumber, fields.Coordinates.Lon(), fields.Coordinates.Lat(), fields.Elevation,
		fields.Notes, highlights, nullFloat(fields.RouteDistanceKm), nullInt(fields.RoutePointIndex),
		s.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update waypoint %s: %w", id, err)
	}
	return expectRow(res, journey.ErrWaypointNotFound)
}

func (s *Store) DeleteWaypoint(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM waypoints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete waypoint %s: %w", id, err)
	}
	return expectRow(res, journey.ErrWaypointNotFound)
}

func (s *Store) UpdateRoute(ctx context.Context, journeyID string, route []geo.RouteCoordinate) error {
	encoded, err := encodeRoute(route)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `UPDATE journeys SET route = ?, updated_at = ? WHERE id = ?`,
		encoded, s.now().UnixMilli(), journeyID)
	if err != nil {
		return fmt.Errorf("failed to update route of journey %s: %w", journeyID, err)
	}
	return expectRow(res, journey.ErrJourneyNotFound)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.rebind(query), args...)
}

// rebind rewrites ? placeholders as $1, $2... for Postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanWaypoint(rows *sql.Rows) (*journey.Waypoint, error) {
	var (
		w          journey.Waypoint
		lon, lat   float64
		highlights string
		distance   sql.NullFloat64
		index      sql.NullInt64
	)
	if err := rows.Scan(&w.ID, &w.JourneyID, &w.Name, &w.DayNumber, &lon, &lat, &w.Elevation,
		&w.Notes, &highlights, &distance, &index); err != nil {
		return nil, fmt.Errorf("failed to scan waypoint: %w", err)
	}
	w.Coordinates = geo.Coordinate{lon, lat}
	if highlights != "" {
		if err := json.Unmarshal([]byte(highlights), &w.Highlights); err != nil {
			return nil, fmt.Errorf("failed to decode highlights of waypoint %s: %w", w.ID, err)
		}
	}
	if len(w.Highlights) == 0 {
		w.Highlights = nil
	}
	if distance.Valid {
		w.RouteDistanceKm = journey.Float(distance.Float64)
	}
	if index.Valid {
		w.RoutePointIndex = journey.Int(int(index.Int64))
	}
	return &w, nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func encodeRoute(route []geo.RouteCoordinate) (string, error) {
	if route == nil {
		route = []geo.RouteCoordinate{}
	}
	data, err := json.Marshal(route)
	if err != nil {
		return "", fmt.Errorf("failed to encode route: %w", err)
	}
	return string(data), nil
}

func encodeHighlights(highlights []string) (string, error) {
	if highlights == nil {
		highlights = []string{}
	}
	data, err := json.Marshal(highlights)
	if err != nil {
		return "", fmt.Errorf("failed to encode highlights: %w", err)
	}
	return string(data), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
