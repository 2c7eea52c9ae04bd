package sqlite

import (
	"fmt"
	"strings"

	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

// kindTables names the table pair that stores one transaction kind.
// Table names are constants chosen here, never caller input, so they are
// safe to format into SQL.
type kindTables struct {
	transactions string
	categories   string
}

func tablesFor(kind model.TransactionKind) (kindTables, error) {
	switch kind {
	case model.Inflow:
		return kindTables{transactions: "inflows", categories: "inflow_categories"}, nil
	case model.Outflow:
		return kindTables{transactions: "outflows", categories: "outflow_categories"}, nil
	default:
		return kindTables{}, fmt.Errorf("sqlite: unknown transaction kind %q", kind)
	}
}

// transactionFilter is the WHERE clause shared by the page query, the
// count query and the sum query, so all three always see the same rows.
type transactionFilter struct {
	where string
	args  []any
}

// buildTransactionFilter translates q into predicates over the aliases
// t (transactions) and c (categories).
//
// The owner predicate is on t.user_id. The category join then stays
// inside the same user's rows, so a name filter can never reach another
// user's category even when names collide.
func buildTransactionFilter(q repository.TransactionQuery) transactionFilter {
	where := []string{"t.user_id = ?"}
	args := []any{q.UserID}

	if q.Search != "" {
		where = append(where, `casefold(COALESCE(t.description, '')) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(fold(q.Search))+"%")
	}

	if len(q.Categories) > 0 {
		placeholders := make([]string, len(q.Categories))
		for i, name := range q.Categories {
			placeholders[i] = "?"
			args = append(args, foldName(name))
		}
		where = append(where, fmt.Sprintf("casefold(trim(c.name)) IN (%s)", strings.Join(placeholders, ", ")))
	}

	// date() drops the time of day, so a range ending on a given day
	// includes everything recorded that day.
	start, end := q.StartDate, q.EndDate
	if start != nil && end == nil {
		end = start
	}
	if start != nil {
		where = append(where, "date(t.created_at) >= ?")
		args = append(args, start.UTC().Format(repository.DateLayout))
	}
	if end != nil {
		where = append(where, "date(t.created_at) <= ?")
		args = append(args, end.UTC().Format(repository.DateLayout))
	}

	return transactionFilter{
		where: strings.Join(where, " AND "),
		args:  args,
	}
}

// orderClause sorts by the requested key and breaks ties on id, so
// consecutive pages never overlap or skip rows.
func orderClause(q repository.TransactionQuery) string {
	dir := "DESC"
	if q.SortOrder == repository.SortAsc {
		dir = "ASC"
	}
	col := "t.created_at"
	if q.SortBy == repository.SortByAmount {
		col = "t.amount"
	}
	return fmt.Sprintf("%s %s, t.id %s", col, dir, dir)
}

// escapeLike makes %, _ and the escape character itself match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
