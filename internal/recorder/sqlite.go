package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"SignalSentinel/internal/model"
)

// SQLiteRecorder persists the journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logrus.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			timeframe     TEXT,
			direction     TEXT,
			confidence    REAL,
			total_score   REAL,
			threshold     REAL,
			current_price REAL,
			rsi           REAL,
			macd_hist     REAL,
			stoch_rsi     REAL,
			mfi           REAL,
			trend         TEXT,
			divergence    TEXT,
			occ_score     REAL,
			stc_cci_score REAL,
			atr           REAL,
			regime        TEXT,
			rel_vol       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses(timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id            TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			timeframe     TEXT,
			direction     TEXT,
			confidence    REAL,
			price         REAL,
			horizon_ms    INTEGER,
			total_score   REAL,
			regime        TEXT,
			rel_vol       REAL,
			snapshot_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS outcomes (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			decision_id      TEXT NOT NULL,
			timestamp        INTEGER NOT NULL,
			timeframe        TEXT,
			direction        TEXT,
			result           TEXT,
			success          INTEGER,
			return_pct       REAL,
			price_change_pct REAL,
			confidence       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_decision ON outcomes(decision_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(a model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind := a.Indicators
	_, err := r.db.Exec(`INSERT INTO analyses
		(timestamp, timeframe, direction, confidence, total_score, threshold, current_price,
		 rsi, macd_hist, stoch_rsi, mfi, trend, divergence, occ_score, stc_cci_score, atr,
		 regime, rel_vol)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.Timestamp.UnixMilli(), a.Timeframe, string(a.Direction), a.Confidence, a.TotalScore,
		a.Threshold, ind.CurrentPrice,
		ind.RSI, ind.MACD.Histogram, ind.StochRSI, ind.MFI, string(ind.Trend.Direction),
		string(ind.Divergence), ind.OCC.Score, ind.STCCCI.Score, ind.ATR,
		a.Context.MarketRegime, a.Context.RelativeVolatility,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordDecision(d model.Decision) error {
	snapshot, err := json.Marshal(d.IndicatorSnapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT INTO decisions
		(id, timestamp, timeframe, direction, confidence, price, horizon_ms,
		 total_score, regime, rel_vol, snapshot_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Timestamp.UnixMilli(), d.Timeframe, string(d.Direction), d.Confidence,
		d.CurrentPriceAtDecision, d.EvaluationHorizon.Milliseconds(),
		d.MarketContext.TotalScore, d.MarketContext.MarketRegime, d.MarketContext.RelativeVolatility,
		string(snapshot),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordOutcome(o model.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO outcomes
		(decision_id, timestamp, timeframe, direction, result, success, return_pct,
		 price_change_pct, confidence)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		o.DecisionID, o.Timestamp.UnixMilli(), o.Timeframe, string(o.Direction), string(o.Result),
		o.Success, o.Return, o.PriceChangePct, o.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
