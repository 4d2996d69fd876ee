package postgres

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Table    string
}

func configFromMap(dbConfig map[string]interface{}) (*Config, error) {
	host, port, err := config.GetIPAddress(dbConfig, "address", config.WithDefault([]interface{}{"localhost", 5432}))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get address")
	}
	user, err := config.GetString(dbConfig, "user")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get user")
	}
	password, err := config.GetString(dbConfig, "password", config.WithDefault(""))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get password")
	}
	database, err := config.GetString(dbConfig, "databaseName")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get databaseName")
	}
	table, err := config.GetString(dbConfig, "tableName")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get tableName")
	}

	return &Config{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Database: database,
		Table:    table,
	}, nil
}

type logger struct{}

func (logger) Log(level pgx.LogLevel, msg string, data map[string]interface{}) {
	log.Printf("postgres: %s %s %+v", level, msg, data)
}

func connect(cfg *Config) (*pgx.Conn, error) {
	db, err := pgx.Connect(pgx.ConnConfig{
		Host:     cfg.Host,
		Port:     uint16(cfg.Port),
		User:     cfg.User,
		Database: cfg.Database,
		Password: cfg.Password,
		Logger:   logger{},
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect to database")
	}
	return db, nil
}

// column is a table column along with the expression selecting it.
// Columns of types without a native counterpart get cast on the server.
type column struct {
	field      octofetch.Field
	expression string
}

func describe(ctx context.Context, db *pgx.Conn, table string) ([]column, error) {
	rows, err := db.QueryEx(ctx, "SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position", nil, table)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't describe table")
	}
	defer rows.Close()

	var out []column
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, errors.Wrap(err, "couldn't scan table description")
		}

		identifier := pgx.Identifier{name}.Sanitize()
		col := column{
			field:      octofetch.Field{Name: name, Role: octofetch.RoleMeasure},
			expression: identifier,
		}
		switch dataType {
		case "integer", "smallint", "bigint":
			col.field.Type = octofetch.Int
		case "real", "double precision":
			col.field.Type = octofetch.Float
		case "numeric":
			col.field.Type = octofetch.Float
			col.expression = identifier + "::float8"
		case "boolean":
			col.field.Type = octofetch.Boolean
		case "text", "character", "character varying":
			col.field.Type = octofetch.String
		case "timestamp without time zone", "timestamp with time zone", "date":
			col.field.Type = octofetch.Time
		default:
			log.Printf("postgres: reading column %s of unsupported type %s as text", name, dataType)
			col.field.Type = octofetch.String
			col.expression = identifier + "::text"
		}
		if nullable == "YES" {
			col.field.Type = col.field.Type.WithNullable()
		}
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read table description")
	}
	if len(out) == 0 {
		return nil, errors.Errorf("table %s doesn't exist or has no columns", table)
	}
	return out, nil
}

type Dataset struct {
	name    string
	config  *Config
	columns []column
	schema  octofetch.Schema
	bridge  *execution.Bridge
}

// Creator describes the configured table. The connection is only used for that and closed right away,
// every fetch opens its own.
func Creator(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (*Dataset, error) {
	cfg, err := configFromMap(dbConfig)
	if err != nil {
		return nil, err
	}

	db, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	columns, err := describe(ctx, db, cfg.Table)
	if err != nil {
		return nil, err
	}

	fields := make([]octofetch.Field, len(columns))
	for i := range columns {
		fields[i] = columns[i].field
	}

	return &Dataset{
		name:    name,
		config:  cfg,
		columns: columns,
		schema:  octofetch.NewSchema(fields...),
		bridge:  bridge,
	}, nil
}

func (d *Dataset) Schema() octofetch.Schema {
	return d.schema
}

func (d *Dataset) Data(ctx context.Context) (execution.RecordStream, error) {
	return d.open(ctx, d.query(nil))
}

// SortedData pushes the ordering down to the database.
func (d *Dataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	for i := range ordering {
		if d.schema.FieldIndex(ordering[i].Column) == -1 {
			return nil, errors.Errorf("unknown column '%s' in ordering", ordering[i].Column)
		}
	}
	return d.open(ctx, d.query(ordering))
}

func (d *Dataset) query(ordering octofetch.Ordering) string {
	expressions := make([]string, len(d.columns))
	for i := range d.columns {
		expressions[i] = d.columns[i].expression
	}

	builder := &strings.Builder{}
	fmt.Fprintf(builder, "SELECT %s FROM %s", strings.Join(expressions, ", "), pgx.Identifier{d.config.Table}.Sanitize())
	for i := range ordering {
		if i == 0 {
			builder.WriteString(" ORDER BY ")
		} else {
			builder.WriteString(", ")
		}
		builder.WriteString(pgx.Identifier{ordering[i].Column}.Sanitize())
		// Nulls are the smallest values, same as in the in-memory ordering.
		if ordering[i].Direction == octofetch.Descending {
			builder.WriteString(" DESC NULLS LAST")
		} else {
			builder.WriteString(" ASC NULLS FIRST")
		}
	}
	return builder.String()
}

func (d *Dataset) open(ctx context.Context, query string) (execution.RecordStream, error) {
	stream, err := d.bridge.Open(ctx, d.name, func(ctx context.Context, produce execution.ProduceFn, ready execution.ReadyFn) error {
		return d.fetch(ctx, query, produce, ready)
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (d *Dataset) fetch(ctx context.Context, query string, produce execution.ProduceFn, ready execution.ReadyFn) error {
	db, err := connect(d.config)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.QueryEx(ctx, query, nil)
	if err != nil {
		return errors.Wrap(err, "couldn't execute database query")
	}
	defer rows.Close()
	ready()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return errors.Wrap(err, "couldn't get row values")
		}
		if err := produce(execution.NewRecordFromGo(values...)); err != nil {
			return errors.Wrap(err, "couldn't produce record")
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "couldn't read rows")
	}
	return nil
}
