// Copyright 2025 Poiesic Systems
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

package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/bulkload/core"
)

// BuildInsertStatement returns the parameterized insert for columns:
//
//	INSERT INTO keyspace.table (c1, c2) VALUES (?, ?);
//
// An empty keyspace yields an unqualified table name, resolved against the
// session's keyspace. Names are matched exactly: any name CQL would not read
// back unchanged when unquoted (upper case, spaces, reserved words) is
// double-quoted.
func BuildInsertStatement(keyspace, table string, columns []string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("%w: table name is empty", core.ErrInvalidSchema)
	}
	if err := core.ValidateColumns(columns); err != nil {
		return "", err
	}

	target := quoteIdentifier(table)
	if keyspace != "" {
		target = quoteIdentifier(keyspace) + "." + target
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(target)
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdentifier(c))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
	}
	b.WriteString(");")
	return b.String(), nil
}

var plainIdentifier = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedWords are the CQL keywords that cannot be used unquoted.
var reservedWords = map[string]bool{
	"add": true, "allow": true, "alter": true, "and": true, "apply": true,
	"asc": true, "authorize": true, "batch": true, "begin": true, "by": true,
	"columnfamily": true, "create": true, "delete": true, "desc": true,
	"describe": true, "drop": true, "entries": true, "execute": true,
	"from": true, "full": true, "grant": true, "if": true, "in": true,
	"index": true, "infinity": true, "insert": true, "into": true,
	"keyspace": true, "limit": true, "materialized": true, "modify": true,
	"nan": true, "norecursive": true, "not": true, "null": true, "of": true,
	"on": true, "or": true, "order": true, "primary": true, "rename": true,
	"replace": true, "revoke": true, "schema": true, "select": true,
	"set": true, "table": true, "to": true, "token": true, "truncate": true,
	"unlogged": true, "unset": true, "update": true, "use": true,
	"using": true, "view": true, "where": true, "with": true,
}

// quoteIdentifier returns name as a CQL identifier.
func quoteIdentifier(name string) string {
	if plainIdentifier.MatchString(name) && !reservedWords[name] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
