// Package db archives answered questions in Postgres through bun.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"
)

// Answer is one archived run. The vector index itself is never stored.
type Answer struct {
	bun.BaseModel `bun:"table:answers,alias:a"`
	ID            int64     `bun:"id,pk,autoincrement"`
	RunID         string    `bun:"run_id,notnull,unique"`
	Source        string    `bun:"source,notnull"`
	Query         string    `bun:"query,notnull"`
	Content       string    `bun:"content,notnull"`
	ValidJSON     bool      `bun:"valid_json,notnull"`
	Retrieved     int       `bun:"retrieved,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// NewAnswer flattens a response into an archive row.
func NewAnswer(resp *models.PromptResponse) *Answer {
	return &Answer{
		RunID:     resp.RunID,
		Source:    resp.Source,
		Query:     resp.Query,
		Content:   resp.Content,
		ValidJSON: resp.ParseFailure == nil,
		Retrieved: len(resp.Retrieved),
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a pool for cfg.DSN with the configured driver. No connection
// is made until the first query.
func ConnectDB(cfg *config.DatabaseConfig) (sqldb *sql.DB, err error) {
	switch cfg.Driver {
	case config.DriverPQ:
		return sql.Open("postgres", cfg.DSN)
	case config.DriverPG:
		// pgdriver panics on a malformed DSN
		defer func() {
			if r := recover(); r != nil {
				sqldb, err = nil, fmt.Errorf("%w: database dsn: %v", models.ErrInvalidConfig, r)
			}
		}()
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", models.ErrInvalidConfig, cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Answer)(nil)).IfNotExists().Exec(ctx)
	return err
}

func StoreAnswer(ctx context.Context, db *bun.DB, resp *models.PromptResponse) error {
	answer := NewAnswer(resp)
	if _, err := db.NewInsert().Model(answer).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store answer %s: %w", resp.RunID, err)
	}
	log.Debug().Str("run_id", resp.RunID).Int64("id", answer.ID).Msg("Archived answer")
	return nil
}

// RecentAnswers returns the latest archived answers for source, newest first.
func RecentAnswers(ctx context.Context, db *bun.DB, source string, limit int) ([]Answer, error) {
	var answers []Answer
	err := recentQuery(db, &answers, source, limit).Scan(ctx)
	return answers, err
}

func recentQuery(db *bun.DB, answers *[]Answer, source string, limit int) *bun.SelectQuery {
	return db.NewSelect().
		Model(answers).
		Where("source = ?", source).
		OrderExpr("created_at DESC").
		Limit(limit)
}

func DropAnswers(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Answer)(nil)).IfExists().Exec(ctx)
	return err
}
