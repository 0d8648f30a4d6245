// Package tournament implements tournament search for customers and the
// admin operations that create, edit and toggle tournaments.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/match-video-api/internal/common"
	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/quote"
)

const dateLayout = "2006-01-02"

type queryProvider interface {
	GetTournament(ctx context.Context, id pgtype.UUID) (db.Tournament, error)
	SearchActiveTournaments(ctx context.Context, arg db.SearchActiveTournamentsParams) ([]db.Tournament, error)
	ListTournaments(ctx context.Context, arg db.ListTournamentsParams) ([]db.Tournament, error)
	CountTournaments(ctx context.Context) (int64, error)
	CreateTournament(ctx context.Context, arg db.CreateTournamentParams) (db.Tournament, error)
	UpdateTournament(ctx context.Context, arg db.UpdateTournamentParams) (db.Tournament, error)
	SetTournamentActive(ctx context.Context, id pgtype.UUID, active bool) (db.Tournament, error)
}

// Tournament is the public tournament payload.
type Tournament struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SetType       string     `json:"setType"`
	PriceOverride *int64     `json:"priceOverride,omitempty"`
	Categories    []string   `json:"categories"`
	IsActive      bool       `json:"isActive"`
	CustomNotice  *string    `json:"customNotice,omitempty"`
	Note          *string    `json:"note,omitempty"`
	StartDate     *string    `json:"startDate,omitempty"`
	EndDate       *string    `json:"endDate,omitempty"`
	UseCount      int        `json:"useCount"`
	LastUsedAt    *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Input is the admin payload for creating or replacing a tournament.
type Input struct {
	Name          string   `json:"name" validate:"notblank,max=200"`
	SetType       string   `json:"setType" validate:"omitempty,oneof=ONE_SET THREE_SET"`
	PriceOverride *int64   `json:"priceOverride" validate:"omitempty,gte=0"`
	Categories    []string `json:"categories" validate:"max=50,dive,max=100"`
	IsActive      *bool    `json:"isActive"`
	CustomNotice  *string  `json:"customNotice" validate:"omitempty,max=2000"`
	Note          *string  `json:"note" validate:"omitempty,max=2000"`
	StartDate     *string  `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate       *string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// ListResult is a page of tournaments for the admin list.
type ListResult struct {
	Items []Tournament
	Total int64
	Page  int
	Limit int
}

// Service coordinates tournament reads and admin writes.
type Service struct {
	queries     queryProvider
	defaultTake int
	maxTake     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries     queryProvider
	DefaultTake int
	MaxTake     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("tournament: queries provider is required")
	}
	maxTake := cfg.MaxTake
	if maxTake < 1 {
		maxTake = 100
	}
	defaultTake := cfg.DefaultTake
	if defaultTake < 1 {
		defaultTake = 20
	}
	if defaultTake > maxTake {
		defaultTake = maxTake
	}
	return &Service{queries: cfg.Queries, defaultTake: defaultTake, maxTake: maxTake}, nil
}

// DefaultTake is the page size used when the caller sends none.
func (s *Service) DefaultTake() int { return s.defaultTake }

// MaxTake is the largest page size Search honours.
func (s *Service) MaxTake() int { return s.maxTake }

// Search lists active tournaments whose name or note contains q, most
// recently used first. take is clamped to [1, MaxTake].
func (s *Service) Search(ctx context.Context, q string, take int) ([]Tournament, error) {
	if take < 1 {
		take = s.defaultTake
	}
	if take > s.maxTake {
		take = s.maxTake
	}
	rows, err := s.queries.SearchActiveTournaments(ctx, db.SearchActiveTournamentsParams{
		Query: strings.TrimSpace(q),
		Limit: int32(take),
	})
	if err != nil {
		return nil, fmt.Errorf("search tournaments: %w", err)
	}
	out := make([]Tournament, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// Get returns an active tournament. Inactive tournaments are hidden from
// customers and reported as not found.
func (s *Service) Get(ctx context.Context, id string) (Tournament, error) {
	row, err := s.fetch(ctx, id)
	if err != nil {
		return Tournament{}, err
	}
	if !row.IsActive {
		return Tournament{}, common.NotFound("tournament", id)
	}
	return toDTO(row), nil
}

// List pages through every tournament, newest first.
func (s *Service) List(ctx context.Context, page, limit int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultTake
	}
	if limit > s.maxTake {
		limit = s.maxTake
	}
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		return ListResult{}, common.Invalid("page", "max="+strconv.Itoa(maxPage))
	}
	total, err := s.queries.CountTournaments(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("count tournaments: %w", err)
	}
	rows, err := s.queries.ListTournaments(ctx, db.ListTournamentsParams{
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list tournaments: %w", err)
	}
	items := make([]Tournament, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	return ListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Create inserts a tournament. New tournaments are active unless the input
// says otherwise.
func (s *Service) Create(ctx context.Context, in Input) (Tournament, error) {
	params, err := buildParams(in)
	if err != nil {
		return Tournament{}, err
	}
	row, err := s.queries.CreateTournament(ctx, params)
	if err != nil {
		return Tournament{}, fmt.Errorf("create tournament: %w", err)
	}
	return toDTO(row), nil
}

// Update replaces every editable field of a tournament. An omitted
// isActive keeps the current state.
func (s *Service) Update(ctx context.Context, id string, in Input) (Tournament, error) {
	current, err := s.fetch(ctx, id)
	if err != nil {
		return Tournament{}, err
	}
	if in.IsActive == nil {
		active := current.IsActive
		in.IsActive = &active
	}
	params, err := buildParams(in)
	if err != nil {
		return Tournament{}, err
	}
	row, err := s.queries.UpdateTournament(ctx, db.UpdateTournamentParams{ID: current.ID, CreateTournamentParams: params})
	if err != nil {
		if db.IsNotFound(err) {
			return Tournament{}, common.NotFound("tournament", id)
		}
		return Tournament{}, fmt.Errorf("update tournament: %w", err)
	}
	return toDTO(row), nil
}

// SetActive toggles whether customers can find and submit to a tournament.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (Tournament, error) {
	uid, err := parseID(id)
	if err != nil {
		return Tournament{}, err
	}
	row, err := s.queries.SetTournamentActive(ctx, uid, active)
	if err != nil {
		if db.IsNotFound(err) {
			return Tournament{}, common.NotFound("tournament", id)
		}
		return Tournament{}, fmt.Errorf("set tournament active: %w", err)
	}
	return toDTO(row), nil
}

func (s *Service) fetch(ctx context.Context, id string) (db.Tournament, error) {
	uid, err := parseID(id)
	if err != nil {
		return db.Tournament{}, err
	}
	row, err := s.queries.GetTournament(ctx, uid)
	if err != nil {
		if db.IsNotFound(err) {
			return db.Tournament{}, common.NotFound("tournament", id)
		}
		return db.Tournament{}, fmt.Errorf("get tournament: %w", err)
	}
	return row, nil
}

func parseID(id string) (pgtype.UUID, error) {
	uid, err := db.ParseUUID(strings.TrimSpace(id))
	if err != nil {
		return pgtype.UUID{}, common.Invalid("id", "uuid")
	}
	return uid, nil
}

func buildParams(in Input) (db.CreateTournamentParams, error) {
	if err := common.ValidateStruct(in); err != nil {
		return db.CreateTournamentParams{}, err
	}
	start, err := parseDate(in.StartDate)
	if err != nil {
		return db.CreateTournamentParams{}, common.Invalid("startDate", "datetime=2006-01-02")
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		return db.CreateTournamentParams{}, common.Invalid("endDate", "datetime=2006-01-02")
	}
	if start.Valid && end.Valid && end.Time.Before(start.Time) {
		return db.CreateTournamentParams{}, common.Invalid("endDate", "gtefield=startDate")
	}
	setType := quote.SetTypeOneSet
	if in.SetType != "" {
		setType = quote.SetType(in.SetType)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return db.CreateTournamentParams{
		Name:          strings.TrimSpace(in.Name),
		SetType:       string(setType),
		PriceOverride: db.Int8(in.PriceOverride),
		Categories:    normalizeCategories(in.Categories),
		IsActive:      active,
		CustomNotice:  db.Text(in.CustomNotice),
		Note:          db.Text(in.Note),
		StartDate:     start,
		EndDate:       end,
	}, nil
}

// normalizeCategories trims entries and drops duplicates, keeping the first
// occurrence so the admin-defined order survives.
func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func parseDate(v *string) (pgtype.Date, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*v))
	if err != nil {
		return pgtype.Date{}, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func formatDate(d pgtype.Date) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format(dateLayout)
	return &s
}

func toDTO(row db.Tournament) Tournament {
	out := Tournament{
		ID:            db.UUIDString(row.ID),
		Name:          row.Name,
		SetType:       row.SetType,
		PriceOverride: db.Int8Ptr(row.PriceOverride),
		Categories:    row.Categories,
		IsActive:      row.IsActive,
		CustomNotice:  db.TextPtr(row.CustomNotice),
		Note:          db.TextPtr(row.Note),
		StartDate:     formatDate(row.StartDate),
		EndDate:       formatDate(row.EndDate),
		UseCount:      int(row.UseCount),
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	if row.LastUsedAt.Valid {
		t := row.LastUsedAt.Time
		out.LastUsedAt = &t
	}
	return out
}
