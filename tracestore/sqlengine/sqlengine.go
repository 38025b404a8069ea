package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore/sqlengine/internal/adapters"
)

const (
	defaultTracesTableName = "traces"
	defaultInsertBatchSize = 500

	suffixEvent    = "_event"
	suffixProducer = "_event_producer"
	suffixType     = "_event_type"

	colCategory      = "category"
	colProducerID    = "producer_id"
	colTypeID        = "type_id"
	colTimestamp     = "ts"
	colEndTimestamp  = "end_ts"
	colEndProducerID = "end_producer_id"
	colValue         = "value"
	colID            = "id"
	colName          = "name"
	colProducerType  = "producer_type"
	colLocalID       = "local_id"
	colParentID      = "parent_id"
	colAlias         = "alias"
	colMinTimestamp  = "min_ts"
	colMaxTimestamp  = "max_ts"
	colEvents        = "events"
	colLocator       = "locator"

	operationReadSlice    = "read_slice"
	operationReadBoundary = "read_boundary"
	operationReadCategory = "read_categories"
	operationAppendEvents = "append_events"

	logMsgBuildQueryFailed  = "failed to build query"
	logMsgDBQueryFailed     = "database query execution failed"
	logMsgDBExecFailed      = "database statement execution failed"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgDecodeEventFailed = "failed to decode reduced event from database row"
	logMsgEventsAppended    = "events appended"
	logMsgTraceSaved        = "trace saved"
	logMsgSQLExecuted       = "executed sql for: "
	logMsgOperation         = "tracestore operation: "
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrTable            = "table"
	logAttrEventCount       = "event_count"
	logAttrDurationMS       = "duration_ms"
	logAttrTraceID          = "trace_id"
	logAttrStatements       = "statements"
	logActionQuery          = "query"
	logActionExec           = "exec"
	errorTypeBuildQuery     = "build_query"
	errorTypeDatabaseQuery  = "database_query"
	errorTypeRowScan        = "row_scan"
	errorTypeDecodeEvent    = "decode_event"
	errorTypeRowIteration   = "row_iteration"
)

var locatorPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type sqlQueryString = string

// EventStore reads trace events, catalogs and trace summaries from a SQL database.
// It leverages a database adapter and supports customizable logging, metrics and tracing.
type EventStore struct {
	db               adapters.DBAdapter
	dialect          Dialect
	tracesTableName  string
	insertBatchSize  int
	logger           tracestore.Logger
	contextualLogger tracestore.ContextualLogger
	metricsCollector tracestore.MetricsCollector
	tracingCollector tracestore.TracingCollector
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), DialectPostgres, options...)
}

// NewEventStoreFromPGXPoolAndReplica creates a new EventStore using a primary and a replica pgx Pool.
// Reads run on the replica when the context carries tracestore.ReplicaReads.
func NewEventStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if db == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapterWithReplica(db, replica), DialectPostgres, options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
// The dialect defaults to PostgreSQL, use WithDialect(DialectSQLite) for SQLite connections.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), DialectPostgres, options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), DialectPostgres, options...)
}

func newEventStore(db adapters.DBAdapter, dialect Dialect, options ...Option) (*EventStore, error) {
	es := &EventStore{
		db:              db,
		dialect:         dialect,
		tracesTableName: defaultTracesTableName,
		insertBatchSize: defaultInsertBatchSize,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// Dialect returns the SQL dialect queries are rendered in.
func (es *EventStore) Dialect() Dialect {
	return es.dialect
}

type traceTables struct {
	event    string
	producer string
	typ      string
}

func tablesFor(locator string) (traceTables, error) {
	if locator == "" {
		return traceTables{}, tracestore.ErrEmptyLocator
	}

	if !locatorPattern.MatchString(locator) {
		return traceTables{}, ErrInvalidLocator
	}

	return traceTables{
		event:    locator + suffixEvent,
		producer: locator + suffixProducer,
		typ:      locator + suffixType,
	}, nil
}

func (es *EventStore) builder() goqu.DialectWrapper {
	return goqu.Dialect(string(es.dialect))
}

func (es *EventStore) buildSliceQuery(table string, query tracestore.SliceQuery) (sqlQueryString, error) {
	upperBound := goqu.C(colTimestamp).Lt(query.To)
	if query.ToInclusive {
		upperBound = goqu.C(colTimestamp).Lte(query.To)
	}

	selectStmt := es.selectEvents(table).
		Where(goqu.C(colTimestamp).Gte(query.From), upperBound)

	return toSQL(selectStmt)
}

func (es *EventStore) buildBoundaryQuery(table string, query tracestore.BoundaryQuery) (sqlQueryString, error) {
	selectStmt := es.selectEvents(table).
		Where(
			goqu.C(colTimestamp).Lt(query.WindowStart),
			goqu.L("(?, ?) >= (?, ?)", goqu.C(colTimestamp), goqu.C(colEndTimestamp), query.TraceMin, query.WindowStart),
		)

	if query.DurationOnly {
		selectStmt = selectStmt.Where(goqu.C(colCategory).In(int(tracestore.CategoryState), int(tracestore.CategoryLink)))
	}

	return toSQL(selectStmt)
}

func (es *EventStore) buildCategoryQuery(table string, query tracestore.CategoryQuery) (sqlQueryString, error) {
	selectStmt := es.selectEvents(table)

	if len(query.Categories) > 0 {
		codes := make([]int, 0, len(query.Categories))
		for _, category := range query.Categories {
			codes = append(codes, int(category))
		}

		selectStmt = selectStmt.Where(goqu.C(colCategory).In(codes))
	}

	return toSQL(selectStmt)
}

func (es *EventStore) selectEvents(table string) *goqu.SelectDataset {
	return es.builder().
		From(table).
		Select(colCategory, colProducerID, colTypeID, colTimestamp, colEndTimestamp, colEndProducerID, colValue).
		Order(goqu.C(colTimestamp).Asc(), goqu.C(colEndTimestamp).Asc())
}

type sqlRenderer interface {
	ToSQL() (string, []interface{}, error)
}

func toSQL(stmt sqlRenderer) (sqlQueryString, error) {
	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// scanEvents runs a read query and hands every decoded row to visit, in row order.
func (es *EventStore) scanEvents(
	ctx context.Context,
	spanName string,
	operation string,
	table string,
	from, to int64,
	sqlQuery sqlQueryString,
	visit tracestore.VisitFunc,
) error {

	ctx, observer := es.startReadObservation(ctx, spanName, operation, table, from, to)

	rows, err := es.executeQuery(ctx, sqlQuery)
	if err != nil {
		observer.finishError(errorTypeDatabaseQuery)
		return err
	}
	defer es.closeRows(ctx, rows)

	raw := tracestore.RawEvent{}
	eventCount := 0

	for rows.Next() {
		scanErr := rows.Scan(&raw.Category, &raw.ProducerID, &raw.TypeID, &raw.Timestamp, &raw.EndTimestamp, &raw.EndProducerID, &raw.Value)
		if scanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, scanErr, logAttrTable, table)
			observer.finishError(errorTypeRowScan)

			return errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		event, decodeErr := tracestore.DecodeReducedEvent(raw)
		if decodeErr != nil {
			es.logError(ctx, logMsgDecodeEventFailed, decodeErr, logAttrTable, table)
			observer.finishError(errorTypeDecodeEvent)

			return errors.Join(ErrDecodingEventFailed, decodeErr)
		}

		eventCount++

		if visitErr := visit(event); visitErr != nil {
			if errors.Is(visitErr, tracestore.ErrStopScan) {
				observer.finishSuccess(eventCount)
				return nil
			}

			observer.finishError(errorTypeRowIteration)

			return visitErr
		}
	}

	if iterErr := rows.Err(); iterErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, iterErr, logAttrQuery, sqlQuery)
		observer.finishError(errorTypeRowIteration)

		return errors.Join(ErrQueryingEventsFailed, iterErr)
	}

	observer.finishSuccess(eventCount)

	return nil
}

// executeQuery executes the SQL query and logs it with its duration.
func (es *EventStore) executeQuery(ctx context.Context, sqlQuery sqlQueryString) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, logActionQuery, time.Since(start))

	if queryErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(ErrQueryingEventsFailed, queryErr)
	}

	return rows, nil
}

// executeStatements commits the write statements as one transaction and logs them with the total duration.
func (es *EventStore) executeStatements(ctx context.Context, statements ...sqlQueryString) (int64, error) {
	if len(statements) == 0 {
		return 0, nil
	}

	start := time.Now()
	rowsAffected, execErr := es.db.ExecAll(ctx, statements)
	es.logQueryWithDuration(ctx, strings.Join(statements, ";\n"), logActionExec, time.Since(start))

	if execErr != nil {
		es.logError(ctx, logMsgDBExecFailed, execErr, logAttrStatements, len(statements), logAttrQuery, statements[0])
		return 0, errors.Join(ErrWritingFailed, execErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (es *EventStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// readProducers loads the producer catalog of a trace.
func (es *EventStore) readProducers(ctx context.Context, table string) ([]tracestore.Producer, error) {
	sqlQuery, err := toSQL(es.builder().
		From(table).
		Select(colID, colName, colProducerType, colLocalID, colParentID).
		Order(goqu.C(colID).Asc()))
	if err != nil {
		es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, table)
		return nil, err
	}

	rows, err := es.executeQuery(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer es.closeRows(ctx, rows)

	producers := make([]tracestore.Producer, 0)
	for rows.Next() {
		p := tracestore.Producer{}
		if scanErr := rows.Scan(&p.ID, &p.Name, &p.Type, &p.LocalID, &p.ParentID); scanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, scanErr, logAttrTable, table)
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		producers = append(producers, p)
	}

	if iterErr := rows.Err(); iterErr != nil {
		return nil, errors.Join(ErrQueryingEventsFailed, iterErr)
	}

	return producers, nil
}

// readTypes loads the event type catalog of a trace.
func (es *EventStore) readTypes(ctx context.Context, table string) ([]tracestore.EventType, error) {
	sqlQuery, err := toSQL(es.builder().
		From(table).
		Select(colID, colName, colCategory).
		Order(goqu.C(colID).Asc()))
	if err != nil {
		es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, table)
		return nil, err
	}

	rows, err := es.executeQuery(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer es.closeRows(ctx, rows)

	types := make([]tracestore.EventType, 0)
	for rows.Next() {
		et := tracestore.EventType{}
		category := 0
		if scanErr := rows.Scan(&et.ID, &et.Name, &category); scanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, scanErr, logAttrTable, table)
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		et.Category = tracestore.Category(category)
		types = append(types, et)
	}

	if iterErr := rows.Err(); iterErr != nil {
		return nil, errors.Join(ErrQueryingEventsFailed, iterErr)
	}

	return types, nil
}

// LoadTrace reads one trace summary. Returns tracestore.ErrTraceNotFound if there is none with this id.
func (es *EventStore) LoadTrace(ctx context.Context, id uuid.UUID) (tracestore.Trace, error) {
	traces, err := es.queryTraces(ctx, goqu.C(colID).Eq(id.String()))
	if err != nil {
		return tracestore.Trace{}, err
	}

	if len(traces) == 0 {
		return tracestore.Trace{}, fmt.Errorf("%w: %s", tracestore.ErrTraceNotFound, id)
	}

	return traces[0], nil
}

// ListTraces reads all trace summaries ordered by alias.
func (es *EventStore) ListTraces(ctx context.Context) ([]tracestore.Trace, error) {
	return es.queryTraces(ctx)
}

func (es *EventStore) queryTraces(ctx context.Context, where ...goqu.Expression) ([]tracestore.Trace, error) {
	sqlQuery, err := toSQL(es.builder().
		From(es.tracesTableName).
		Select(colID, colAlias, colMinTimestamp, colMaxTimestamp, colEvents, colLocator).
		Where(where...).
		Order(goqu.C(colAlias).Asc()))
	if err != nil {
		es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, es.tracesTableName)
		return nil, err
	}

	rows, err := es.executeQuery(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer es.closeRows(ctx, rows)

	traces := make([]tracestore.Trace, 0)
	for rows.Next() {
		var id string
		t := tracestore.Trace{}
		if scanErr := rows.Scan(&id, &t.Alias, &t.MinTimestamp, &t.MaxTimestamp, &t.NumberOfEvents, &t.Locator); scanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, scanErr, logAttrTable, es.tracesTableName)
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		parsedID, parseErr := uuid.Parse(id)
		if parseErr != nil {
			return nil, errors.Join(ErrScanningDBRowFailed, parseErr)
		}

		t.ID = parsedID
		traces = append(traces, t)
	}

	if iterErr := rows.Err(); iterErr != nil {
		return nil, errors.Join(ErrQueryingEventsFailed, iterErr)
	}

	return traces, nil
}

// SaveTrace inserts or replaces a trace summary. The replace is atomic, readers never miss the trace.
func (es *EventStore) SaveTrace(ctx context.Context, trace tracestore.Trace) error {
	if _, err := tablesFor(trace.Locator); err != nil {
		return err
	}

	deleteQuery, err := toSQL(es.builder().Delete(es.tracesTableName).Where(goqu.C(colID).Eq(trace.ID.String())))
	if err != nil {
		return err
	}

	insertQuery, err := toSQL(es.builder().Insert(es.tracesTableName).Rows(goqu.Record{
		colID:           trace.ID.String(),
		colAlias:        trace.Alias,
		colMinTimestamp: trace.MinTimestamp,
		colMaxTimestamp: trace.MaxTimestamp,
		colEvents:       trace.NumberOfEvents,
		colLocator:      trace.Locator,
	}))
	if err != nil {
		return err
	}

	if _, err = es.executeStatements(ctx, deleteQuery, insertQuery); err != nil {
		return err
	}

	es.logOperation(ctx, logMsgTraceSaved, logAttrTraceID, trace.ID.String())

	return nil
}

// CreateTracesTable creates the table holding trace summaries if it does not exist.
func (es *EventStore) CreateTracesTable(ctx context.Context) error {
	_, err := es.executeStatements(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (`+
			`id TEXT PRIMARY KEY, alias TEXT NOT NULL, min_ts BIGINT NOT NULL, max_ts BIGINT NOT NULL, `+
			`events BIGINT NOT NULL, locator TEXT NOT NULL)`,
		es.tracesTableName))

	return err
}

// CreateTraceSchema creates the event, producer and type tables of a trace if they do not exist.
func (es *EventStore) CreateTraceSchema(ctx context.Context, locator string) error {
	tables, err := tablesFor(locator)
	if err != nil {
		return err
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (`+
			`category INTEGER NOT NULL, producer_id INTEGER NOT NULL, type_id INTEGER NOT NULL, `+
			`ts BIGINT NOT NULL, end_ts BIGINT NOT NULL, end_producer_id INTEGER NOT NULL DEFAULT 0, `+
			`value DOUBLE PRECISION NOT NULL DEFAULT 0)`, tables.event),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ts ON %s (ts, end_ts)`, tables.event, tables.event),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (`+
			`id INTEGER PRIMARY KEY, name TEXT NOT NULL, producer_type TEXT NOT NULL, `+
			`local_id TEXT NOT NULL, parent_id INTEGER NOT NULL)`, tables.producer),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (`+
			`id INTEGER PRIMARY KEY, name TEXT NOT NULL, category INTEGER NOT NULL)`, tables.typ),
	}

	_, err = es.executeStatements(ctx, statements...)

	return err
}

// AppendEvents writes events to the event table of a trace. Rows are inserted in statements of the
// configured batch size, all of them in one transaction, so a failed append leaves no partial chunk behind.
func (es *EventStore) AppendEvents(ctx context.Context, locator string, events tracestore.ReducedEvents) error {
	tables, err := tablesFor(locator)
	if err != nil {
		return err
	}

	start := time.Now()

	rows := make([]any, 0, len(events))
	for _, ev := range events {
		raw := tracestore.EncodeReducedEvent(ev)
		rows = append(rows, goqu.Record{
			colCategory:      raw.Category,
			colProducerID:    raw.ProducerID,
			colTypeID:        raw.TypeID,
			colTimestamp:     raw.Timestamp,
			colEndTimestamp:  raw.EndTimestamp,
			colEndProducerID: raw.EndProducerID,
			colValue:         raw.Value,
		})
	}

	if err := es.insertInBatches(ctx, tables.event, rows); err != nil {
		es.recordErrorMetrics(ctx, operationAppendEvents, errorTypeDatabaseQuery)
		return err
	}

	duration := time.Since(start)
	es.recordDurationMetrics(ctx, metricWriteDuration, duration, operationAppendEvents, statusSuccess)
	es.logOperation(ctx, logMsgEventsAppended,
		logAttrTable, tables.event,
		logAttrEventCount, len(events),
		logAttrDurationMS, es.toMilliseconds(duration))

	return nil
}

// AppendProducers writes producer descriptors to the catalog of a trace.
func (es *EventStore) AppendProducers(ctx context.Context, locator string, producers []tracestore.Producer) error {
	tables, err := tablesFor(locator)
	if err != nil {
		return err
	}

	rows := make([]any, 0, len(producers))
	for _, p := range producers {
		rows = append(rows, goqu.Record{
			colID:           p.ID,
			colName:         p.Name,
			colProducerType: p.Type,
			colLocalID:      p.LocalID,
			colParentID:     p.ParentID,
		})
	}

	return es.insertInBatches(ctx, tables.producer, rows)
}

// AppendTypes writes event type descriptors to the catalog of a trace.
func (es *EventStore) AppendTypes(ctx context.Context, locator string, types []tracestore.EventType) error {
	tables, err := tablesFor(locator)
	if err != nil {
		return err
	}

	rows := make([]any, 0, len(types))
	for _, et := range types {
		rows = append(rows, goqu.Record{
			colID:       et.ID,
			colName:     et.Name,
			colCategory: int(et.Category),
		})
	}

	return es.insertInBatches(ctx, tables.typ, rows)
}

// insertInBatches splits rows into multi-row INSERT statements and commits them together.
func (es *EventStore) insertInBatches(ctx context.Context, table string, rows []any) error {
	statements := make([]sqlQueryString, 0, len(rows)/es.insertBatchSize+1)

	for from := 0; from < len(rows); from += es.insertBatchSize {
		to := min(from+es.insertBatchSize, len(rows))

		statement, err := toSQL(es.builder().Insert(table).Rows(rows[from:to]...))
		if err != nil {
			es.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, table)
			return err
		}

		statements = append(statements, statement)
	}

	_, err := es.executeStatements(ctx, statements...)

	return err
}

// Ensure EventStore implements the store interfaces.
var (
	_ tracestore.SessionOpener   = (*EventStore)(nil)
	_ tracestore.TraceRepository = (*EventStore)(nil)
)
