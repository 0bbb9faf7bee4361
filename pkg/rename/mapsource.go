// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rename

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DefaultDBTable is the table LoadMapFromDB reads when none is given.
const DefaultDBTable = "rename_mappings"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// 🎯 LoadMapFromFile loads a rename map from a JSON or YAML file holding an
// object of old-name to new-name pairs. The format is chosen by extension.
func LoadMapFromFile(ctx context.Context, path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading map file: %w", err)
	}

	var m Map
	switch {
	case strings.HasSuffix(path, ".json"):
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Errorf("parsing JSON map file %s: %w", path, err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		decoder := yaml.NewDecoder(strings.NewReader(string(data)))
		decoder.KnownFields(true)
		if err := decoder.Decode(&m); err != nil {
			return nil, errors.Errorf("parsing YAML map file %s: %w", path, err)
		}
	default:
		return nil, errors.Errorf("unsupported map file format: %s", path)
	}

	zerolog.Ctx(ctx).Debug().Int("entries", len(m)).Str("path", path).Msg("loaded rename map from file")
	return m, nil
}

// 🎯 LoadMapFromDB loads a rename map from a SQLite database. The table
// must have old_name and new_name columns.
func LoadMapFromDB(ctx context.Context, dbPath, table string) (Map, error) {
	if table == "" {
		table = DefaultDBTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, errors.Errorf("invalid table name %q", table)
	}

	if _, err := os.Stat(dbPath); err != nil {
		return nil, errors.Errorf("database file %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Errorf("opening database %s: %w", dbPath, err)
	}
	defer db.Close()

	// Table name is validated above; SQLite cannot bind identifiers.
	query := fmt.Sprintf("SELECT old_name, new_name FROM %s", table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Errorf("querying table %s: %w", table, err)
	}
	defer rows.Close()

	m := Map{}
	for rows.Next() {
		var oldName, newName string
		if err := rows.Scan(&oldName, &newName); err != nil {
			return nil, errors.Errorf("scanning row: %w", err)
		}
		m[oldName] = newName
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("reading rows: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Int("entries", len(m)).Str("db", dbPath).Str("table", table).Msg("loaded rename map from database")
	return m, nil
}

// 🎯 LoadMapFromPairs builds a rename map from repeated old/new CLI pairs.
func LoadMapFromPairs(pairs [][2]string) Map {
	m := Map{}
	for _, pair := range pairs {
		m[pair[0]] = pair[1]
	}
	return m
}
