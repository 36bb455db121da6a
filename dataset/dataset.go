// Package dataset loads the compound table and holds it as immutable,
// row-aligned artifacts.
package dataset

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Dataset is an ordered collection of compounds sharing one schema: a
// feature table plus one potency score per row. A missing or non-numeric
// score is held as NaN.
type Dataset struct {
	schema   Schema
	features *Frame
	scores   []float64
}

// New assembles a Dataset. scores is copied.
func New(schema Schema, features *Frame, scores []float64) (*Dataset, error) {
	rows, _ := features.Dims()
	if len(scores) != rows {
		return nil, errors.NewDimensionError("dataset.New", rows, len(scores), 0)
	}
	return &Dataset{
		schema:   schema,
		features: features,
		scores:   append([]float64(nil), scores...),
	}, nil
}

// Schema returns the schema the dataset was read with.
func (d *Dataset) Schema() Schema { return d.schema }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.scores) }

// Features returns the feature table.
func (d *Dataset) Features() *Frame { return d.features }

// Score returns the potency score of record i.
func (d *Dataset) Score(i int) float64 { return d.scores[i] }

// Scores returns a copy of the potency scores.
func (d *Dataset) Scores() []float64 {
	return append([]float64(nil), d.scores...)
}

// Subset returns a new Dataset holding the given records in the given order.
func (d *Dataset) Subset(rows []int) *Dataset {
	scores := make([]float64, len(rows))
	for k, i := range rows {
		scores[k] = d.scores[i]
	}
	return &Dataset{schema: d.schema, features: d.features.SelectRows(rows), scores: scores}
}

// ReadCSV parses a comma-separated table with a header row. Every cell is
// read as a float; unparseable feature cells are an error, unparseable
// scores are kept as NaN for the labelling stage to report.
func ReadCSV(r io.Reader, schema Schema) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "read csv")
	}

	featureNames, err := schema.Resolve(df.Names())
	if err != nil {
		return nil, err
	}

	rows := df.Nrow()
	data := make([]float64, rows*len(featureNames))
	for j, name := range featureNames {
		col := df.Col(name).Float()
		for i, v := range col {
			if math.IsNaN(v) {
				return nil, errors.NewValueError("ReadCSV",
					fmt.Sprintf("feature '%s' has a missing or non-numeric value at row %d", name, i))
			}
			data[i*len(featureNames)+j] = v
		}
	}

	features, err := NewFrame(featureNames, rows, data)
	if err != nil {
		return nil, err
	}
	return New(schema, features, df.Col(schema.ScoreColumn).Float())
}
