package db

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nickyhof/ZeroTrustDB/commit"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
	SumResultType
)

type Result interface {
	Type() ResultType
	Render(w io.Writer)
	Display()
}

// ResultRow is a decrypted row and its commitment. Rows read from a table
// carry the commitment taken over their first value at insert time; join
// rows carry a commitment over the whole concatenated row.
type ResultRow struct {
	Values   []any
	Proof    commit.Commitment
	wholeRow bool
}

// CommittedValue returns the value the row proof was taken over.
func (row ResultRow) CommittedValue() any {
	if row.wholeRow {
		return row.Values
	}
	if len(row.Values) == 0 {
		return nil
	}
	return row.Values[0]
}

func (row ResultRow) clone() ResultRow {
	values := make([]any, len(row.Values))
	copy(values, row.Values)
	return ResultRow{Values: values, Proof: row.Proof, wholeRow: row.wholeRow}
}

type QueryResult struct {
	Columns          []string
	Rows             []ResultRow
	Condition        *core.Condition
	Proof            commit.Commitment
	ConditionProof   *commit.Commitment
	Cached           bool
	RecordsRead      int
	ExecutionTimeSec float64
	ExecutionOps     int
}

// Values returns the plaintext rows, the value the result proof covers.
func (result QueryResult) Values() [][]any {
	values := make([][]any, len(result.Rows))
	for i, row := range result.Rows {
		values[i] = row.Values
	}
	return values
}

func (result QueryResult) clone() QueryResult {
	rows := make([]ResultRow, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = row.clone()
	}
	result.Rows = rows
	return result
}

type CommitResult struct {
	Transaction      ps.Transaction
	TablesCreated    int
	RecordsWritten   int
	RecordsUpdated   int
	RecordsDeleted   int
	Commitments      []commit.Commitment
	ExecutionTimeSec float64
	ExecutionOps     int
}

type SumResult struct {
	Table            string
	Column           string
	Sum              int64
	Proof            commit.Commitment
	Cached           bool
	RecordsRead      int
	ExecutionTimeSec float64
	ExecutionOps     int
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

func (result SumResult) Type() ResultType {
	return SumResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	}

	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func formatThroughput(ops int, secs float64) string {
	if secs <= 0 || ops <= 0 {
		return ""
	}

	rate := float64(ops) / secs
	switch {
	case rate >= 1000000:
		return fmt.Sprintf(", %.1fM ops/s", rate/1000000)
	case rate >= 1000:
		return fmt.Sprintf(", %.1fK ops/s", rate/1000)
	default:
		return fmt.Sprintf(", %.0f ops/s", rate)
	}
}

// formatValue renders a plaintext cell; nil is a join placeholder.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result SumResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Render(w io.Writer) {
	if len(result.Rows) > 0 {
		data := NewTable(w)
		data.Header(result.Columns)
		data.Align(result.alignment()...)
		for _, row := range result.Rows {
			cells := make([]string, len(row.Values))
			for i, value := range row.Values {
				cells[i] = formatValue(value)
			}
			data.Row(cells)
		}
		data.Render()
	}

	cached := ""
	if result.Cached {
		cached = ", cached"
	}

	fmt.Fprintf(w, "%d rows (%s%s%s)\n", len(result.Rows), result.ExecutionTime(), formatThroughput(result.ExecutionOps, result.ExecutionTimeSec), cached)
	fmt.Fprintf(w, "proof %s\n", result.Proof)
	if result.ConditionProof != nil {
		fmt.Fprintf(w, "condition %s proof %s\n", result.Condition, result.ConditionProof)
	}
}

// alignment right-aligns the columns that hold only integers.
func (result QueryResult) alignment() []Alignment {
	alignment := make([]Alignment, len(result.Columns))
	for i := range alignment {
		numeric := false
		for _, row := range result.Rows {
			if i >= len(row.Values) || row.Values[i] == nil {
				continue
			}
			if _, ok := row.Values[i].(int64); !ok {
				numeric = false
				break
			}
			numeric = true
		}
		if numeric {
			alignment[i] = AlignRight
		}
	}
	return alignment
}

func (result QueryResult) Display() {
	result.Render(os.Stdout)
}

func (result CommitResult) Render(w io.Writer) {
	var parts []string

	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsUpdated > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) updated", result.RecordsUpdated))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	throughput := formatThroughput(result.ExecutionOps, result.ExecutionTimeSec)
	if len(parts) == 0 {
		fmt.Fprintf(w, "OK (%s%s)\n", result.ExecutionTime(), throughput)
	} else {
		fmt.Fprintf(w, "%s (%s%s)\n", strings.Join(parts, ", "), result.ExecutionTime(), throughput)
	}
}

func (result CommitResult) Display() {
	result.Render(os.Stdout)
}

func (result SumResult) Render(w io.Writer) {
	data := NewTable(w)
	data.Header([]string{fmt.Sprintf("SUM(%s.%s)", result.Table, result.Column)})
	data.Align(AlignRight)
	data.Row([]string{strconv.FormatInt(result.Sum, 10)})
	data.Render()

	cached := ""
	if result.Cached {
		cached = ", cached"
	}
	fmt.Fprintf(w, "%d rows summed (%s%s)\n", result.RecordsRead, result.ExecutionTime(), cached)
	fmt.Fprintf(w, "proof %s\n", result.Proof)
}

func (result SumResult) Display() {
	result.Render(os.Stdout)
}
