package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-enhancer/internal/module"
)

// Run describes a cached identification run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Params    Params
	Enhancers int64
	Modules   int64
}

// WriteRun replaces any cached results for key with mods, batch-inserting
// module edges using the Appender API. The runs row is inserted only after
// every edge is flushed, so a failed write never leaves a run that HasRun
// reports with missing modules.
func (s *Store) WriteRun(key string, p Params, enhancers int, mods []module.Module) (err error) {
	ctx := context.Background()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if err := deleteRun(ctx, conn, key); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = deleteRun(ctx, conn, key)
		}
	}()

	if err := appendModules(conn, key, mods); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx,
		`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, time.Now().UTC(), int64(p.TFCutoff), p.Corr, p.PValue, int64(enhancers), int64(len(mods)),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// appendModules writes one modules row per target gene. Closing the appender
// flushes it.
func appendModules(conn *sql.Conn, key string, mods []module.Module) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "modules")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for seq, m := range mods {
		for _, gene := range m.Targets {
			if err := appender.AppendRow(key, int64(seq), m.Enhancer, m.TF, gene); err != nil {
				_ = appender.Close()
				return fmt.Errorf("append module: %w", err)
			}
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush modules: %w", err)
	}
	return nil
}

// HasRun reports whether results for key are cached.
func (s *Store) HasRun(key string) (bool, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT count(*) FROM runs WHERE run_id=?`, key).Scan(&n); err != nil {
		return false, fmt.Errorf("query run: %w", err)
	}
	return n > 0, nil
}

// DeleteRun removes cached results for key.
func (s *Store) DeleteRun(key string) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()
	return deleteRun(ctx, conn, key)
}

func deleteRun(ctx context.Context, conn *sql.Conn, key string) error {
	if _, err := conn.ExecContext(ctx, `DELETE FROM modules WHERE run_id=?`, key); err != nil {
		return fmt.Errorf("delete modules: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, key); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// Runs lists cached runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT
		run_id, created_at, tf_cutoff, r_cutoff, p_cutoff, enhancers, modules
		FROM runs
		ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var tf int64
		if err := rows.Scan(&r.ID, &r.CreatedAt, &tf, &r.Params.Corr, &r.Params.PValue, &r.Enhancers, &r.Modules); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Params.TFCutoff = int(tf)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ErrNoRuns is returned by LatestRun on an empty store.
var ErrNoRuns = errors.New("no cached runs")

// LatestRun returns the ID of the most recently written run.
func (s *Store) LatestRun() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY created_at DESC, run_id LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

// LoadRun returns the modules of a cached run in the order they were written.
func (s *Store) LoadRun(key string) ([]module.Module, error) {
	return s.queryModules(`WHERE run_id=?`, key)
}

// ModulesByTF returns the modules of run key whose regulating TF is tf.
func (s *Store) ModulesByTF(key, tf string) ([]module.Module, error) {
	return s.queryModules(`WHERE run_id=? AND tf=?`, key, tf)
}

// ModulesByEnhancer returns the modules of run key for one enhancer locus.
func (s *Store) ModulesByEnhancer(key, enhancer string) ([]module.Module, error) {
	return s.queryModules(`WHERE run_id=? AND enhancer=?`, key, enhancer)
}

// ModulesByGene returns the full modules of run key that target gene.
func (s *Store) ModulesByGene(key, gene string) ([]module.Module, error) {
	return s.queryModules(
		`WHERE run_id=? AND seq IN (SELECT seq FROM modules WHERE run_id=? AND target_gene=?)`,
		key, key, gene)
}

// queryModules groups edge rows back into modules, ordered by seq.
func (s *Store) queryModules(where string, args ...any) ([]module.Module, error) {
	rows, err := s.db.Query(`SELECT seq, enhancer, tf, target_gene FROM modules `+where+
		` ORDER BY seq, target_gene`, args...)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	var mods []module.Module
	lastSeq := int64(-1)
	for rows.Next() {
		var seq int64
		var enhancer, tf, gene string
		if err := rows.Scan(&seq, &enhancer, &tf, &gene); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		if seq != lastSeq {
			mods = append(mods, module.Module{Enhancer: enhancer, TF: tf})
			lastSeq = seq
		}
		last := &mods[len(mods)-1]
		last.Targets = append(last.Targets, gene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return mods, nil
}
