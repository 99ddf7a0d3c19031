package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patwikx/twc-platform/internal/domain"
)

type RoomRepository interface {
	GetRoomType(ctx context.Context, id int64) (*domain.RoomType, error)
	GetRoomTypes(ctx context.Context, ids []int64) (map[int64]*domain.RoomType, error)
	ListRoomTypes(ctx context.Context, propertyID int64) ([]domain.RoomType, error)
	ListUnits(ctx context.Context, roomTypeID int64) ([]domain.RoomUnit, error)
}

type roomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &roomRepository{pool: pool}
}

const roomTypeCols = `id, property_id, name, description, capacity, price_per_night, created_at, updated_at`

func (r *roomRepository) GetRoomType(ctx context.Context, id int64) (*domain.RoomType, error) {
	const q = `SELECT ` + roomTypeCols + ` FROM room_types WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rt domain.RoomType
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rt.ID, &rt.PropertyID, &rt.Name, &rt.Description, &rt.Capacity, &rt.PricePerNight, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &rt, err
}

func (r *roomRepository) GetRoomTypes(ctx context.Context, ids []int64) (map[int64]*domain.RoomType, error) {
	const q = `SELECT ` + roomTypeCols + ` FROM room_types WHERE id = ANY($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[int64]*domain.RoomType, len(ids))
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(
			&rt.ID, &rt.PropertyID, &rt.Name, &rt.Description, &rt.Capacity, &rt.PricePerNight, &rt.CreatedAt, &rt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		types[rt.ID] = &rt
	}
	return types, rows.Err()
}

func (r *roomRepository) ListRoomTypes(ctx context.Context, propertyID int64) ([]domain.RoomType, error) {
	q := `SELECT ` + roomTypeCols + ` FROM room_types`
	args := []any{}
	if propertyID > 0 {
		q += ` WHERE property_id=$1`
		args = append(args, propertyID)
	}
	q += ` ORDER BY name`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []domain.RoomType
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(
			&rt.ID, &rt.PropertyID, &rt.Name, &rt.Description, &rt.Capacity, &rt.PricePerNight, &rt.CreatedAt, &rt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	return types, rows.Err()
}

func (r *roomRepository) ListUnits(ctx context.Context, roomTypeID int64) ([]domain.RoomUnit, error) {
	const q = `SELECT id, room_type_id, unit_number, active FROM room_units WHERE room_type_id=$1 ORDER BY unit_number`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, roomTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []domain.RoomUnit
	for rows.Next() {
		var u domain.RoomUnit
		if err := rows.Scan(&u.ID, &u.RoomTypeID, &u.UnitNumber, &u.Active); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
