package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tournamentColumns = `id, name, set_type, price_override, categories, is_active, custom_notice, note,
       start_date, end_date, use_count, last_used_at, created_at, updated_at`

func scanTournament(row pgx.Row) (Tournament, error) {
	var i Tournament
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.SetType,
		&i.PriceOverride,
		&i.Categories,
		&i.IsActive,
		&i.CustomNotice,
		&i.Note,
		&i.StartDate,
		&i.EndDate,
		&i.UseCount,
		&i.LastUsedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectTournaments(rows pgx.Rows) ([]Tournament, error) {
	defer rows.Close()
	items := []Tournament{}
	for rows.Next() {
		i, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getTournament = `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

func (q *Queries) GetTournament(ctx context.Context, id pgtype.UUID) (Tournament, error) {
	return scanTournament(q.db.QueryRow(ctx, getTournament, id))
}

const searchActiveTournaments = `SELECT ` + tournamentColumns + `
FROM tournaments
WHERE is_active
  AND ($1::text = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\' OR note ILIKE '%' || $1 || '%' ESCAPE '\')
ORDER BY last_used_at DESC NULLS LAST, created_at DESC
LIMIT $2`

type SearchActiveTournamentsParams struct {
	Query string
	Limit int32
}

// SearchActiveTournaments matches Query as a literal substring of name or note.
func (q *Queries) SearchActiveTournaments(ctx context.Context, arg SearchActiveTournamentsParams) ([]Tournament, error) {
	rows, err := q.db.Query(ctx, searchActiveTournaments, escapeLike(arg.Query), arg.Limit)
	if err != nil {
		return nil, err
	}
	return collectTournaments(rows)
}

const listTournaments = `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY created_at DESC LIMIT $1 OFFSET $2`

type ListTournamentsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListTournaments(ctx context.Context, arg ListTournamentsParams) ([]Tournament, error) {
	rows, err := q.db.Query(ctx, listTournaments, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectTournaments(rows)
}

const countTournaments = `SELECT count(*) FROM tournaments`

func (q *Queries) CountTournaments(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countTournaments).Scan(&n)
	return n, err
}

const createTournament = `INSERT INTO tournaments (
    name, set_type, price_override, categories, is_active, custom_notice, note, start_date, end_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + tournamentColumns

type CreateTournamentParams struct {
	Name          string
	SetType       string
	PriceOverride pgtype.Int8
	Categories    []string
	IsActive      bool
	CustomNotice  pgtype.Text
	Note          pgtype.Text
	StartDate     pgtype.Date
	EndDate       pgtype.Date
}

func (q *Queries) CreateTournament(ctx context.Context, arg CreateTournamentParams) (Tournament, error) {
	return scanTournament(q.db.QueryRow(ctx, createTournament,
		arg.Name,
		arg.SetType,
		arg.PriceOverride,
		nonNilStrings(arg.Categories),
		arg.IsActive,
		arg.CustomNotice,
		arg.Note,
		arg.StartDate,
		arg.EndDate,
	))
}

const updateTournament = `UPDATE tournaments SET
    name = $2,
    set_type = $3,
    price_override = $4,
    categories = $5,
    is_active = $6,
    custom_notice = $7,
    note = $8,
    start_date = $9,
    end_date = $10,
    updated_at = now()
WHERE id = $1
RETURNING ` + tournamentColumns

type UpdateTournamentParams struct {
	ID pgtype.UUID
	CreateTournamentParams
}

func (q *Queries) UpdateTournament(ctx context.Context, arg UpdateTournamentParams) (Tournament, error) {
	return scanTournament(q.db.QueryRow(ctx, updateTournament,
		arg.ID,
		arg.Name,
		arg.SetType,
		arg.PriceOverride,
		nonNilStrings(arg.Categories),
		arg.IsActive,
		arg.CustomNotice,
		arg.Note,
		arg.StartDate,
		arg.EndDate,
	))
}

const setTournamentActive = `UPDATE tournaments SET is_active = $2, updated_at = now() WHERE id = $1 RETURNING ` + tournamentColumns

func (q *Queries) SetTournamentActive(ctx context.Context, id pgtype.UUID, active bool) (Tournament, error) {
	return scanTournament(q.db.QueryRow(ctx, setTournamentActive, id, active))
}

const incrementTournamentUsage = `UPDATE tournaments SET use_count = use_count + 1, last_used_at = now() WHERE id = $1`

// IncrementTournamentUsage bumps the usage counter with a single atomic
// UPDATE and reports how many rows were touched.
func (q *Queries) IncrementTournamentUsage(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, incrementTournamentUsage, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(strings.TrimSpace(s))
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
