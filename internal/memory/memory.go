// Package memory persists scored candidates in a relational table and
// answers threshold queries over them.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/hiresense/internal/hiring"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultDSN       = "memory.db"
	DefaultThreshold = 0.3
)

const columns = `candidate_id, candidate_name, grade_score, extracted_entities, cv_text_preview,
	cv_bias_flags, cv_anonymized, persona_fit_score, explanation,
	composite_score, feedback_adjustment, updated_score`

// createTable returns the Candidates schema. Scores use an 8-byte float on
// both drivers: REAL is 4 bytes on postgres.
func createTable(driver string) string {
	float := "REAL"
	if driver == DriverPostgres {
		float = "DOUBLE PRECISION"
	}
	return strings.ReplaceAll(`CREATE TABLE Candidates (
	candidate_id TEXT PRIMARY KEY,
	candidate_name TEXT,
	grade_score FLOAT,
	extracted_entities TEXT,
	cv_text_preview TEXT,
	cv_bias_flags TEXT,
	cv_anonymized TEXT,
	persona_fit_score FLOAT,
	explanation TEXT,
	composite_score FLOAT,
	feedback_adjustment FLOAT,
	updated_score FLOAT
)`, "FLOAT", float)
}
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Store is the candidate memory backed by database/sql.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the configured database. The sqlite driver is the default.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, dsn := DriverSQLite, DefaultDSN
	if cfg != nil {
		if d := strings.ToLower(strings.TrimSpace(cfg.Driver)); d != "" {
			driver = d
		}
		if d := strings.TrimSpace(cfg.DSN); d != "" {
			dsn = d
		}
	}

	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported memory driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single connection keeps ":memory:" databases alive across calls
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	logger.Debug("memory store opened", zap.String("driver", driver))

	return &Store{db: db, driver: driver, logger: logger}, nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Reset drops and recreates the Candidates table.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS Candidates"); err != nil {
		return fmt.Errorf("drop candidates table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createTable(s.driver)); err != nil {
		return fmt.Errorf("create candidates table: %w", err)
	}

	s.logger.Debug("candidates table created")
	return nil
}

// Insert stores every candidate in a single transaction.
func (s *Store) Insert(ctx context.Context, candidates *hiring.Candidates) error {
	if candidates.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.rebind(`INSERT INTO Candidates (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candidates.Items {
		entities, err := json.Marshal(nonNilEntities(c.Entities))
		if err != nil {
			return fmt.Errorf("encode entities of %s: %w", c.ID, err)
		}
		flags, err := json.Marshal(nonNilFlags(c.BiasFlags))
		if err != nil {
			return fmt.Errorf("encode bias flags of %s: %w", c.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			c.ID, nullString(c.Name), c.GradeScore, string(entities), c.Preview,
			string(flags), c.Anonymized, c.PersonaFitScore, c.Explanation,
			c.CompositeScore, c.FeedbackAdjustment, c.UpdatedScore,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candidates: %w", err)
	}

	s.logger.Debug("candidates inserted", zap.Int("count", candidates.Len()))
	return nil
}

// Selected returns candidates whose updated score reaches threshold, best first.
func (s *Store) Selected(ctx context.Context, threshold float64) (*hiring.Candidates, error) {
	return s.query(ctx,
		`SELECT `+columns+` FROM Candidates WHERE updated_score >= ? ORDER BY updated_score DESC, candidate_id`,
		threshold,
	)
}

// All returns every stored candidate, best first.
func (s *Store) All(ctx context.Context) (*hiring.Candidates, error) {
	return s.query(ctx, `SELECT `+columns+` FROM Candidates ORDER BY updated_score DESC, candidate_id`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*hiring.Candidates, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	result := &hiring.Candidates{}
	for rows.Next() {
		var (
			c                        hiring.Candidate
			name                     sql.NullString
			entities, flags          sql.NullString
			preview, anon, explained sql.NullString
		)

		err := rows.Scan(
			&c.ID, &name, &c.GradeScore, &entities, &preview,
			&flags, &anon, &c.PersonaFitScore, &explained,
			&c.CompositeScore, &c.FeedbackAdjustment, &c.UpdatedScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		c.Name, c.Preview, c.Anonymized, c.Explanation = name.String, preview.String, anon.String, explained.String
		if entities.Valid && entities.String != "" {
			if err := json.Unmarshal([]byte(entities.String), &c.Entities); err != nil {
				return nil, fmt.Errorf("decode entities of %s: %w", c.ID, err)
			}
		}
		if flags.Valid && flags.String != "" {
			if err := json.Unmarshal([]byte(flags.String), &c.BiasFlags); err != nil {
				return nil, fmt.Errorf("decode bias flags of %s: %w", c.ID, err)
			}
		}

		result.Items = append(result.Items, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return result, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNilEntities(entities []hiring.Entity) []hiring.Entity {
	if entities == nil {
		return []hiring.Entity{}
	}
	return entities
}

func nonNilFlags(flags []string) []string {
	if flags == nil {
		return []string{}
	}
	return flags
}
