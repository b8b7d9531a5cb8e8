package docstore

import (
	"context"
	"fmt"
	"strings"
)

// QueryBuilder constructs parameterized GraphQL queries covering the
// equality/offset/limit subset docstore needs.
type QueryBuilder struct {
	collection string
	filters    []filterDef
	fields     []string
	limit      int
	offset     int
	varIndex   int
}

type filterDef struct {
	field   string
	varName string
	varType string
	value   any
}

// NewQuery starts a query against collection, defaulting to the _docID field.
func NewQuery(collection string) *QueryBuilder {
	return &QueryBuilder{collection: collection, fields: []string{"_docID"}}
}

// Filter adds an equality filter.
func (q *QueryBuilder) Filter(field string, value any) *QueryBuilder {
	name := q.nextVarName()
	q.filters = append(q.filters, filterDef{field: field, varName: name, varType: inferGraphQLType(value), value: value})
	return q
}

// Fields sets the returned field list, replacing the _docID default.
func (q *QueryBuilder) Fields(fields ...string) *QueryBuilder {
	q.fields = fields
	return q
}

// Limit sets the maximum number of results.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset sets the pagination offset.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Build returns the query string and its variable bindings.
func (q *QueryBuilder) Build() (string, map[string]any) {
	vars := make(map[string]any, len(q.filters))
	var varDefs, filterParts []string
	for _, f := range q.filters {
		varDefs = append(varDefs, fmt.Sprintf("$%s: %s", f.varName, f.varType))
		filterParts = append(filterParts, fmt.Sprintf("%s: {_eq: $%s}", f.field, f.varName))
		vars[f.varName] = f.value
	}

	var b strings.Builder
	if len(varDefs) > 0 {
		b.WriteString(fmt.Sprintf("query(%s) ", strings.Join(varDefs, ", ")))
	}
	b.WriteString("{ ")
	b.WriteString(q.collection)

	var args []string
	if len(filterParts) > 0 {
		args = append(args, fmt.Sprintf("filter: {%s}", strings.Join(filterParts, ", ")))
	}
	if q.limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", q.limit))
	}
	if q.offset > 0 {
		args = append(args, fmt.Sprintf("offset: %d", q.offset))
	}
	if len(args) > 0 {
		b.WriteString(fmt.Sprintf("(%s)", strings.Join(args, ", ")))
	}

	b.WriteString(" { ")
	b.WriteString(strings.Join(q.fields, " "))
	b.WriteString(" } }")

	return b.String(), vars
}

// Execute builds and runs the query against client.
func (q *QueryBuilder) Execute(ctx context.Context, client *Client) (*GQLResponse, error) {
	query, vars := q.Build()
	return client.Execute(ctx, query, vars)
}

func (q *QueryBuilder) nextVarName() string {
	name := fmt.Sprintf("v%d", q.varIndex)
	q.varIndex++
	return name
}

func inferGraphQLType(v any) string {
	switch v.(type) {
	case string:
		return "String"
	case int, int32, int64:
		return "Int"
	case float32, float64:
		return "Float"
	case bool:
		return "Boolean"
	default:
		return "String"
	}
}
