package experiment

import (
	"context"

	"github.com/sarchlab/flowsim/datarecording"
)

// Names of the tables RecordResults writes to.
const (
	ReplicationTable = "replication_stats"
	SummaryTable     = "summary"
)

// ReplicationEntry is one statistic of one replication.
type ReplicationEntry struct {
	RunControl  string  `structs:"run_control"`
	Replication string  `structs:"replication"`
	Index       int     `structs:"idx"`
	Seed        int64   `structs:"seed"`
	Statistic   string  `structs:"statistic"`
	Kind        string  `structs:"kind"`
	N           int     `structs:"n"`
	Mean        float64 `structs:"mean"`
	StdDev      float64 `structs:"std_dev"`
	Min         float64 `structs:"min"`
	Max         float64 `structs:"max"`
}

// CreateResultTables creates the tables RecordResults writes to.
func CreateResultTables(recorder datarecording.DataRecorder) {
	recorder.CreateTable(ReplicationTable, ReplicationEntry{})
	recorder.CreateTable(SummaryTable, Aggregate{})
}

// RecordResults writes the statistics of every replication and their
// aggregates, then flushes the recorder.
func RecordResults(
	recorder datarecording.DataRecorder,
	results []ReplicationResult,
	aggregates []Aggregate,
) {
	for _, r := range results {
		for _, s := range r.Statistics {
			recorder.InsertData(ReplicationTable, ReplicationEntry{
				RunControl:  r.RunControl,
				Replication: r.ID,
				Index:       r.Index,
				Seed:        int64(r.Seed),
				Statistic:   s.Name,
				Kind:        s.Kind,
				N:           s.N,
				Mean:        s.Mean,
				StdDev:      s.StdDev,
				Min:         s.Min,
				Max:         s.Max,
			})
		}
	}

	for _, a := range aggregates {
		recorder.InsertData(SummaryTable, a)
	}

	recorder.Flush()
}

// ReadSummary reads back the aggregates RecordResults wrote, sorted by name.
func ReadSummary(reader datarecording.DataReader) ([]Aggregate, error) {
	reader.MapTable(SummaryTable, Aggregate{})

	rows, _, err := reader.Query(context.Background(), SummaryTable,
		datarecording.QueryParams{OrderBy: "name"})
	if err != nil {
		return nil, err
	}

	aggregates := make([]Aggregate, 0, len(rows))
	for _, row := range rows {
		aggregates = append(aggregates, *row.(*Aggregate))
	}

	return aggregates, nil
}
