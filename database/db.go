package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/chartview/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createViewportTableSQL = "CREATE TABLE IF NOT EXISTS viewport (symbol TEXT PRIMARY KEY, timeframe TEXT NOT NULL, updatedon INTEGER NOT NULL)"
	persistViewportSQL     = "INSERT INTO viewport(symbol, timeframe, updatedon) VALUES(?,?,?) ON CONFLICT(symbol) DO UPDATE SET timeframe = excluded.timeframe, updatedon = excluded.updatedon"
	findViewportSQL        = "SELECT symbol, timeframe, updatedon FROM viewport WHERE symbol = ?"
)

var (
	// ErrStateNotFound is returned when no viewport state is stored for a symbol.
	ErrStateNotFound = errors.New("viewport state not found")
)

// ViewportStorer defines the requirements for storing viewport state.
type ViewportStorer interface {
	// PersistViewportState stores the symbol and timeframe of the provided state.
	PersistViewportState(ctx context.Context, state shared.ViewportState) error
	// FetchViewportState fetches the stored state of the provided symbol.
	FetchViewportState(ctx context.Context, symbol string) (*shared.ViewportState, error)
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Now returns the current time, defaults to time.Now.
	Now func() time.Time
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.User != "" && cfg.Pass == "" {
		errs = errors.Join(errs, fmt.Errorf("database pass cannot be an empty string when a user is set"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("no logger provided"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the ViewportStorer interface.
var _ ViewportStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createViewportTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("creating viewport table: %d -> %s", idx, errStr)
	}

	return nil
}

// PersistViewportState stores the symbol and timeframe of the provided state, replacing
// any state stored for the symbol.
func (db *Database) PersistViewportState(ctx context.Context, state shared.ViewportState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("invalid viewport state: %w", err)
	}

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              persistViewportSQL,
			PositionalParams: []any{state.Symbol, state.Timeframe.String(), db.cfg.Now().Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting viewport state for %s: %d -> %s", state.Symbol, idx, errStr)
	}

	return nil
}

// FetchViewportState fetches the stored state of the provided symbol. It returns
// ErrStateNotFound when nothing is stored for the symbol.
func (db *Database) FetchViewportState(ctx context.Context, symbol string) (*shared.ViewportState, error) {
	resp, err := db.client.QuerySingle(ctx, findViewportSQL, symbol)
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResults()
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, symbol)
	}

	result := results[0]
	if result.Error != "" {
		return nil, fmt.Errorf("fetching viewport state for %s: %s", symbol, result.Error)
	}

	if len(result.Values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, symbol)
	}

	state, err := viewportStateFromRow(result.Columns, result.Values[0])
	if err != nil {
		db.cfg.Logger.Error().Msgf("unexpected viewport row: %s", spew.Sdump(result.Values[0]))
		return nil, err
	}

	return state, nil
}

// viewportStateFromRow parses a viewport state from the provided query row.
func viewportStateFromRow(columns []string, row []any) (*shared.ViewportState, error) {
	if len(columns) != len(row) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
	}

	var state shared.ViewportState
	var symbolSet, timeframeSet bool
	for idx, column := range columns {
		switch column {
		case "symbol":
			symbol, ok := row[idx].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected symbol type %T", row[idx])
			}
			state.Symbol = symbol
			symbolSet = true

		case "timeframe":
			raw, ok := row[idx].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected timeframe type %T", row[idx])
			}
			tf, err := shared.ParseTimeframe(raw)
			if err != nil {
				return nil, err
			}
			state.Timeframe = tf
			timeframeSet = true
		}
	}

	if !symbolSet || !timeframeSet {
		return nil, fmt.Errorf("row is missing the symbol or timeframe column")
	}

	return &state, nil
}
