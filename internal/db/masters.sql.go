package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listVideoTiers = `SELECT id, name, price, description, created_at FROM video_tiers ORDER BY name ASC`

func (q *Queries) ListVideoTiers(ctx context.Context) ([]VideoTier, error) {
	rows, err := q.db.Query(ctx, listVideoTiers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []VideoTier{}
	for rows.Next() {
		var i VideoTier
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getVideoTier = `SELECT id, name, price, description, created_at FROM video_tiers WHERE id = $1`

func (q *Queries) GetVideoTier(ctx context.Context, id pgtype.UUID) (VideoTier, error) {
	var i VideoTier
	err := q.db.QueryRow(ctx, getVideoTier, id).Scan(&i.ID, &i.Name, &i.Price, &i.Description, &i.CreatedAt)
	return i, err
}

const listEditOptions = `SELECT id, name, price, description, created_at FROM edit_options ORDER BY name ASC`

func (q *Queries) ListEditOptions(ctx context.Context) ([]EditOption, error) {
	rows, err := q.db.Query(ctx, listEditOptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []EditOption{}
	for rows.Next() {
		var i EditOption
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getEditOption = `SELECT id, name, price, description, created_at FROM edit_options WHERE id = $1`

func (q *Queries) GetEditOption(ctx context.Context, id pgtype.UUID) (EditOption, error) {
	var i EditOption
	err := q.db.QueryRow(ctx, getEditOption, id).Scan(&i.ID, &i.Name, &i.Price, &i.Description, &i.CreatedAt)
	return i, err
}

const listDeliveryMethods = `SELECT id, name, price, shipping_price, description, created_at FROM delivery_methods ORDER BY name ASC`

func (q *Queries) ListDeliveryMethods(ctx context.Context) ([]DeliveryMethod, error) {
	rows, err := q.db.Query(ctx, listDeliveryMethods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DeliveryMethod{}
	for rows.Next() {
		var i DeliveryMethod
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.ShippingPrice, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getDeliveryMethod = `SELECT id, name, price, shipping_price, description, created_at FROM delivery_methods WHERE id = $1`

func (q *Queries) GetDeliveryMethod(ctx context.Context, id pgtype.UUID) (DeliveryMethod, error) {
	var i DeliveryMethod
	err := q.db.QueryRow(ctx, getDeliveryMethod, id).Scan(&i.ID, &i.Name, &i.Price, &i.ShippingPrice, &i.Description, &i.CreatedAt)
	return i, err
}

const listHolderOptions = `SELECT id, name, price, description, created_at FROM holder_options ORDER BY name ASC`

func (q *Queries) ListHolderOptions(ctx context.Context) ([]HolderOption, error) {
	rows, err := q.db.Query(ctx, listHolderOptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []HolderOption{}
	for rows.Next() {
		var i HolderOption
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getHolderOption = `SELECT id, name, price, description, created_at FROM holder_options WHERE id = $1`

func (q *Queries) GetHolderOption(ctx context.Context, id pgtype.UUID) (HolderOption, error) {
	var i HolderOption
	err := q.db.QueryRow(ctx, getHolderOption, id).Scan(&i.ID, &i.Name, &i.Price, &i.Description, &i.CreatedAt)
	return i, err
}
