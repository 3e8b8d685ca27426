package tools

import (
	"fmt"

	"github.com/AbdelilahOu/DBRouter/internal/client"
)

// dialect holds the catalog queries for one database kind. Queries use ?
// placeholders and are rebound for the driver before running.
type dialect struct {
	dbName     string
	version    string
	schemas    string
	tableCount string

	tables         string // no filter: the current schema or every user schema
	tablesInSchema string // one ? for the schema

	columns         string // one ? for the table, current schema
	columnsInSchema string // table then schema
}

func dialectFor(kind client.Kind) (dialect, error) {
	switch kind {
	case client.Postgres:
		return dialect{
			dbName:     "SELECT current_database()",
			version:    "SELECT version()",
			schemas:    "SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast') ORDER BY schema_name",
			tableCount: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')",
			tables: `SELECT table_name AS name, table_schema AS schema_name, table_type
				FROM information_schema.tables
				WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
				ORDER BY table_schema, table_name`,
			tablesInSchema: `SELECT table_name AS name, table_schema AS schema_name, table_type
				FROM information_schema.tables
				WHERE table_schema = ?
				ORDER BY table_name`,
			columns: `SELECT column_name AS name, data_type AS data_type, is_nullable AS nullable, column_default AS default_value
				FROM information_schema.columns
				WHERE table_name = ? AND table_schema = current_schema()
				ORDER BY ordinal_position`,
			columnsInSchema: `SELECT column_name AS name, data_type AS data_type, is_nullable AS nullable, column_default AS default_value
				FROM information_schema.columns
				WHERE table_name = ? AND table_schema = ?
				ORDER BY ordinal_position`,
		}, nil

	case client.MySQL:
		return dialect{
			dbName:     "SELECT DATABASE()",
			version:    "SELECT CONCAT('MySQL ', VERSION())",
			schemas:    "SELECT SCHEMA_NAME FROM information_schema.SCHEMATA WHERE SCHEMA_NAME NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys') ORDER BY SCHEMA_NAME",
			tableCount: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')",
			tables: `SELECT table_name AS name, table_schema AS schema_name, table_type AS table_type
				FROM information_schema.tables
				WHERE table_schema = DATABASE()
				ORDER BY table_name`,
			tablesInSchema: `SELECT table_name AS name, table_schema AS schema_name, table_type AS table_type
				FROM information_schema.tables
				WHERE table_schema = ?
				ORDER BY table_name`,
			columns: `SELECT column_name AS name, data_type AS data_type, is_nullable AS nullable, column_default AS default_value
				FROM information_schema.columns
				WHERE table_name = ? AND table_schema = DATABASE()
				ORDER BY ordinal_position`,
			columnsInSchema: `SELECT column_name AS name, data_type AS data_type, is_nullable AS nullable, column_default AS default_value
				FROM information_schema.columns
				WHERE table_name = ? AND table_schema = ?
				ORDER BY ordinal_position`,
		}, nil

	case client.SQLServer:
		return dialect{
			dbName:     "SELECT DB_NAME()",
			version:    "SELECT @@VERSION",
			schemas:    "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME NOT IN ('INFORMATION_SCHEMA', 'sys', 'guest') AND SCHEMA_NAME NOT LIKE 'db[_]%' ORDER BY SCHEMA_NAME",
			tableCount: "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES",
			tables: `SELECT TABLE_NAME AS name, TABLE_SCHEMA AS schema_name, TABLE_TYPE AS table_type
				FROM INFORMATION_SCHEMA.TABLES
				ORDER BY TABLE_SCHEMA, TABLE_NAME`,
			tablesInSchema: `SELECT TABLE_NAME AS name, TABLE_SCHEMA AS schema_name, TABLE_TYPE AS table_type
				FROM INFORMATION_SCHEMA.TABLES
				WHERE TABLE_SCHEMA = ?
				ORDER BY TABLE_NAME`,
			columns: `SELECT COLUMN_NAME AS name, DATA_TYPE AS data_type, IS_NULLABLE AS nullable, COLUMN_DEFAULT AS default_value
				FROM INFORMATION_SCHEMA.COLUMNS
				WHERE TABLE_NAME = ? AND TABLE_SCHEMA = SCHEMA_NAME()
				ORDER BY ORDINAL_POSITION`,
			columnsInSchema: `SELECT COLUMN_NAME AS name, DATA_TYPE AS data_type, IS_NULLABLE AS nullable, COLUMN_DEFAULT AS default_value
				FROM INFORMATION_SCHEMA.COLUMNS
				WHERE TABLE_NAME = ? AND TABLE_SCHEMA = ?
				ORDER BY ORDINAL_POSITION`,
		}, nil

	case client.Oracle:
		// Unquoted Oracle aliases come back upper-cased, so they are quoted.
		return dialect{
			dbName:     "SELECT SYS_CONTEXT('USERENV', 'DB_NAME') FROM DUAL",
			version:    "SELECT banner FROM v$version WHERE ROWNUM = 1",
			schemas:    "SELECT username FROM all_users WHERE oracle_maintained = 'N' ORDER BY username",
			tableCount: "SELECT COUNT(*) FROM user_tables",
			tables: `SELECT table_name AS "name", USER AS "schema_name", 'BASE TABLE' AS "table_type" FROM user_tables
				UNION ALL
				SELECT view_name, USER, 'VIEW' FROM user_views
				ORDER BY 1`,
			tablesInSchema: `SELECT table_name AS "name", owner AS "schema_name", 'BASE TABLE' AS "table_type" FROM all_tables WHERE owner = ?
				ORDER BY 1`,
			columns: `SELECT column_name AS "name", data_type AS "data_type", nullable AS "nullable", CAST(NULL AS VARCHAR2(1)) AS "default_value"
				FROM user_tab_columns
				WHERE table_name = ?
				ORDER BY column_id`,
			columnsInSchema: `SELECT column_name AS "name", data_type AS "data_type", nullable AS "nullable", CAST(NULL AS VARCHAR2(1)) AS "default_value"
				FROM all_tab_columns
				WHERE table_name = ? AND owner = ?
				ORDER BY column_id`,
		}, nil

	case client.SQLite:
		// Schemas are the attached databases; "main" is the file itself.
		return dialect{
			dbName:     "SELECT 'main'",
			version:    "SELECT 'SQLite ' || sqlite_version()",
			schemas:    "SELECT name FROM pragma_database_list ORDER BY seq",
			tableCount: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'",
			tables: `SELECT name, 'main' AS schema_name, type AS table_type
				FROM sqlite_master
				WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
				ORDER BY name`,
			tablesInSchema: `SELECT name, schema AS schema_name, type AS table_type
				FROM pragma_table_list
				WHERE schema = ? AND type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
				ORDER BY name`,
			columns: `SELECT name, type AS data_type, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS nullable, dflt_value AS default_value
				FROM pragma_table_info(?)
				ORDER BY cid`,
			columnsInSchema: `SELECT name, type AS data_type, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS nullable, dflt_value AS default_value
				FROM pragma_table_info(?, ?)
				ORDER BY cid`,
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database type %q", kind)
}
