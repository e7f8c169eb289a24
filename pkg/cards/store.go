package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound    = errors.New("card not found")
	ErrInvalidCard = errors.New("invalid card")
)

const (
	DriverPostgres = "pg"
	DriverSQLite   = "sqlite"

	defaultPerPage = 50
	maxPerPage     = 100
)

type Config struct {
	Driver string `envconfig:"DRIVER" split_words:"true" default:"sqlite"`
	DSN    string `envconfig:"DSN" split_words:"true" default:"file:salesops.db?_pragma=busy_timeout(5000)"`
}

// Open connects to the configured database. SQLite is limited to a single
// connection so in-memory databases stay shared.
func Open(cfg Config) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres, "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DriverSQLite, "":
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Card)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create cards table: %w", err)
	}
	indexes := map[string]string{
		"cards_customer_name_idx": "customer_name",
		"cards_email_idx":         "email",
		"cards_status_idx":        "status",
	}
	for name, column := range indexes {
		if _, err := s.db.NewCreateIndex().
			Model((*Card)(nil)).
			Index(name).
			Column(column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, c *Card) error {
	if c == nil {
		return fmt.Errorf("%w: nil card", ErrInvalidCard)
	}
	if err := c.normalize(); err != nil {
		return err
	}
	now := s.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.db.NewInsert().Model(c).Exec(ctx); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Card, error) {
	card := new(Card)
	err := s.db.NewSelect().Model(card).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select card: %w", err)
	}
	return card, nil
}

type ListFilter struct {
	Status     Status
	AssignedTo string
	Search     string
	Page       int
	PerPage    int
}

type Page struct {
	Cards   []Card `json:"cards"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

func (s *Store) List(ctx context.Context, f ListFilter) (Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	var out []Card
	q := s.db.NewSelect().Model(&out)
	if f.Status != "" {
		q = q.Where("c.status = ?", f.Status)
	}
	if v := strings.TrimSpace(f.AssignedTo); v != "" {
		q = q.Where("c.assigned_to = ?", v)
	}
	if v := strings.TrimSpace(f.Search); v != "" {
		term := likeTerm(v)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(c.customer_name) LIKE ?", term).
				WhereOr("LOWER(c.company) LIKE ?", term)
		})
	}

	total, err := q.OrderExpr("c.created_at DESC, c.id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		ScanAndCount(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("list cards: %w", err)
	}
	if out == nil {
		out = []Card{}
	}
	return Page{Cards: out, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *Store) Update(ctx context.Context, id int64, p Patch) (*Card, error) {
	card, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.apply(card)
	if err := card.normalize(); err != nil {
		return nil, err
	}
	card.UpdatedAt = s.now().UTC()
	if _, err := s.db.NewUpdate().Model(card).WherePK().Exec(ctx); err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status) (*Card, error) {
	return s.Update(ctx, id, Patch{Status: &status})
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*Card)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*Card)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// FindByName returns the first card whose customer name contains pattern,
// case-insensitively, or nil when nothing matches.
func (s *Store) FindByName(ctx context.Context, pattern string) (*Card, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}
	card := new(Card)
	err := s.db.NewSelect().
		Model(card).
		Where("LOWER(c.customer_name) LIKE ?", likeTerm(pattern)).
		OrderExpr("c.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find card by name: %w", err)
	}
	return card, nil
}

func (s *Store) AllWithEmail(ctx context.Context) ([]Card, error) {
	var out []Card
	err := s.db.NewSelect().
		Model(&out).
		Where("c.email IS NOT NULL").
		Where("c.email <> ''").
		OrderExpr("c.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select cards with email: %w", err)
	}
	return out, nil
}

// DueForFollowUp lists cards whose next follow-up has passed and that have
// not been reached out to yet.
func (s *Store) DueForFollowUp(ctx context.Context, now time.Time) ([]Card, error) {
	var out []Card
	err := s.dueQuery(now).Model(&out).OrderExpr("c.next_followup_date ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select due cards: %w", err)
	}
	return out, nil
}

func (s *Store) Summary(ctx context.Context, now time.Time) (map[string]int, error) {
	stats := make(map[string]int, len(Statuses)+2)
	for _, st := range Statuses {
		n, err := s.db.NewSelect().Model((*Card)(nil)).Where("c.status = ?", st).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count status %s: %w", st, err)
		}
		stats[string(st)] = n
	}

	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats["total"] = total

	due, err := s.dueQuery(now).Model((*Card)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count due cards: %w", err)
	}
	stats["due_followup"] = due
	return stats, nil
}

func (s *Store) dueQuery(now time.Time) *bun.SelectQuery {
	return s.db.NewSelect().
		Where("c.next_followup_date IS NOT NULL").
		Where("c.next_followup_date <= ?", now.UTC()).
		Where("c.status <> ?", StatusReachedOut)
}

func likeTerm(v string) string {
	return "%" + strings.ToLower(strings.TrimSpace(v)) + "%"
}
