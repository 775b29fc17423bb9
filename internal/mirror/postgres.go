// Package mirror copies appended offers into Postgres so they can be
// queried with SQL. The CSV store stays the source of truth.
package mirror

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"offerwatch/internal/offer"
)

type Config struct {
	DSN        string
	Schema     string // default "public"
	MaxConns   int
	ViaBouncer bool // use the simple protocol behind pgbouncer
	Batch      int
}

type Postgres struct {
	pool  *pgxpool.Pool
	table string
	batch int
}

func Open(ctx context.Context, cfg Config) (*Postgres, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mirror dsn: %w", err)
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 2
	}
	pc.MaxConns = int32(cfg.MaxConns)
	if cfg.ViaBouncer {
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect mirror: %w", err)
	}

	p := &Postgres{pool: pool, table: tableName(cfg.Schema), batch: cfg.Batch}
	if p.batch <= 0 {
		p.batch = 200
	}
	if err := p.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

func tableName(schema string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	return fmt.Sprintf(`"%s".offers`, strings.ReplaceAll(schema, `"`, `""`))
}

func (p *Postgres) ensureTable(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+p.table+` (
  business_key TEXT PRIMARY KEY,
  collected_on DATE NOT NULL,
  title TEXT NOT NULL,
  contract_type TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  start_date TEXT NOT NULL DEFAULT '',
  remote_policy TEXT NOT NULL DEFAULT '',
  education_level TEXT NOT NULL DEFAULT '',
  experience TEXT NOT NULL DEFAULT '',
  company_name TEXT NOT NULL DEFAULT '',
  sector TEXT NOT NULL DEFAULT '',
  employee_count TEXT NOT NULL DEFAULT '',
  company_url TEXT NOT NULL DEFAULT '',
  offer_url TEXT NOT NULL,
  company_description TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  profile_text TEXT NOT NULL DEFAULT '',
  mirrored_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("create mirror table: %w", err)
	}
	return nil
}

const insertCols = `(business_key, collected_on, title, contract_type, location, salary,
 start_date, remote_policy, education_level, experience, company_name, sector,
 employee_count, company_url, offer_url, company_description, description, profile_text)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (business_key) DO NOTHING`

func (p *Postgres) insertSQL() string {
	return `INSERT INTO ` + p.table + "\n" + insertCols
}

// rowArgs lays out o in insertCols order. An unparsable date goes in as NULL
// and is rejected by the column constraint.
func rowArgs(o offer.Offer) []any {
	var day *time.Time
	if t, err := time.Parse(offer.DateLayout, o.CollectedOn); err == nil {
		day = &t
	}
	return []any{
		o.BusinessKey(), day, o.Title, o.ContractType, o.Location, o.Salary,
		o.StartDate, o.RemotePolicy, o.EducationLevel, o.Experience, o.CompanyName, o.Sector,
		o.EmployeeCount, o.CompanyURL, o.OfferURL, o.CompanyDescription, o.Description, o.ProfileText,
	}
}

// Put inserts one offer; an offer already mirrored is left alone.
func (p *Postgres) Put(ctx context.Context, o offer.Offer) error {
	if _, err := p.pool.Exec(ctx, p.insertSQL(), rowArgs(o)...); err != nil {
		return fmt.Errorf("mirror offer %s: %w", o.OfferURL, err)
	}
	return nil
}

// Backfill sends a whole store in batches and returns how many rows were new.
func (p *Postgres) Backfill(ctx context.Context, offers []offer.Offer) (int, error) {
	total := 0
	for i := 0; i < len(offers); i += p.batch {
		j := min(i+p.batch, len(offers))
		b := &pgx.Batch{}
		for _, o := range offers[i:j] {
			b.Queue(p.insertSQL(), rowArgs(o)...)
		}
		br := p.pool.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, fmt.Errorf("backfill mirror: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("backfill mirror: %w", err)
		}
	}
	log.Printf("[mirror] backfill rows=%d new=%d", len(offers), total)
	return total, nil
}
