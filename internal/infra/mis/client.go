package mis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Client runs read-only queries against a single external MIS view. The
// view plus the field mapping are configuration; the client never writes.
type Client struct {
	db     *sqlx.DB
	view   string
	mapper *Mapper
	logger *logrus.Logger
}

func NewClient(db *sqlx.DB, view string, mapper *Mapper, logger *logrus.Logger) *Client {
	return &Client{db: db, view: view, mapper: mapper, logger: logger}
}

// Mapper exposes the mapping for diagnostic callers.
func (c *Client) Mapper() *Mapper { return c.mapper }

// QueryParams filter a live query. Course is optional; when set, the course
// field must be mapped.
type QueryParams struct {
	Username   string
	MetricType string
	Period     string
	Course     string
}

// buildQuery assembles the SELECT for the configured view. Rows are ordered
// deterministically by (course, type, period) ascending, restricted to the
// fields actually mapped.
func (c *Client) buildQuery(selectFields []string, p QueryParams) (string, []interface{}, error) {
	if c.view == "" {
		return "", nil, ErrMissingView
	}
	sel, err := c.mapper.BuildSelectClause(selectFields)
	if err != nil {
		return "", nil, err
	}
	userCol, err := c.mapper.UserColumn()
	if err != nil {
		return "", nil, err
	}

	where := []string{quoteIdent(userCol) + " = ?"}
	args := []interface{}{p.Username}
	if p.MetricType != "" {
		col := c.mapper.FieldMap(FieldType)
		if col == "" {
			return "", nil, &MissingFieldError{Field: FieldType}
		}
		where = append(where, quoteIdent(col)+" = ?")
		args = append(args, p.MetricType)
	}
	if p.Period != "" {
		col := c.mapper.FieldMap(FieldPeriod)
		if col == "" {
			return "", nil, &MissingFieldError{Field: FieldPeriod}
		}
		where = append(where, quoteIdent(col)+" = ?")
		args = append(args, p.Period)
	}
	if p.Course != "" {
		col := c.mapper.FieldMap(FieldCourse)
		if col == "" {
			return "", nil, &MissingFieldError{Field: FieldCourse}
		}
		where = append(where, quoteIdent(col)+" = ?")
		args = append(args, p.Course)
	}

	var order []string
	for _, name := range []string{FieldCourse, FieldType, FieldPeriod} {
		if col := c.mapper.FieldMap(name); col != "" {
			order = append(order, quoteIdent(col)+" ASC")
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", sel, quoteIdent(c.view), strings.Join(where, " AND "))
	if len(order) > 0 {
		query += " ORDER BY " + strings.Join(order, ", ")
	}
	return c.db.Rebind(query), args, nil
}

// selectableFields returns the canonical fields resolvable under the current
// mapping, value always demanded so an unmapped value still fails loudly.
func (c *Client) selectableFields() []string {
	fields := []string{FieldValue}
	for _, name := range []string{FieldUsername, FieldCourse, FieldType, FieldPeriod} {
		if c.mapper.Has(name) {
			fields = append(fields, name)
		}
	}
	return fields
}

// Query executes a live lookup and returns each row as a field=>value
// dictionary keyed by the mapped result names. One row is the common case
// per (student, period, type); multiple rows come back as a list.
func (c *Client) Query(ctx context.Context, p QueryParams) ([]map[string]interface{}, error) {
	query, args, err := c.buildQuery(c.selectableFields(), p)
	if err != nil {
		return nil, err
	}
	return c.runQuery(ctx, query, args)
}

func (c *Client) runQuery(ctx context.Context, query string, args []interface{}) ([]map[string]interface{}, error) {
	rows, err := c.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying MIS view %s: %w", c.view, err)
	}
	defer rows.Close()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("error scanning MIS row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating MIS rows: %w", err)
	}
	return results, nil
}

// FetchValue returns the numeric metric value for a (student, type, period,
// course?) lookup. The second return is false when the MIS has no row.
func (c *Client) FetchValue(ctx context.Context, username, metricType, period, course string) (float64, bool, error) {
	rows, err := c.Query(ctx, QueryParams{
		Username:   username,
		MetricType: metricType,
		Period:     period,
		Course:     course,
	})
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	raw, ok := rows[0][c.mapper.ResultKey(FieldValue)]
	if !ok {
		return 0, false, nil
	}
	val, err := toFloat(raw)
	if err != nil {
		return 0, false, fmt.Errorf("MIS value for %s is not numeric: %w", username, err)
	}
	return val, true, nil
}

// TestResult is the diagnostic output of a configuration check run.
type TestResult struct {
	SQL  string
	Rows []map[string]interface{}
}

// TestQuery runs the live mapping path against a single test username and
// surfaces the generated SQL plus the raw field values. The resolution
// algorithm is shared with Query so the two paths cannot diverge.
func (c *Client) TestQuery(ctx context.Context, username string) (*TestResult, error) {
	query, args, err := c.buildQuery(c.selectableFields(), QueryParams{Username: username})
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Debugf("MIS test query: %s %v", query, args)
	}
	rows, err := c.runQuery(ctx, query, args)
	if err != nil {
		return &TestResult{SQL: query}, err
	}
	return &TestResult{SQL: query, Rows: rows}, nil
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
}
