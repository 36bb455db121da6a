package dataset

import (
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

const (
	// DefaultScoreColumn holds the potency score.
	DefaultScoreColumn = "pIC50"
	// DefaultLabelColumn holds the derived bioactivity class.
	DefaultLabelColumn = "class"
)

// Schema declares the role of every column of the source table. When
// FeatureColumns is empty the feature set is every column except the score
// column, the label column and the Exclude list.
type Schema struct {
	ScoreColumn    string
	LabelColumn    string
	FeatureColumns []string
	Exclude        []string
}

// DefaultSchema returns the schema of the PubChem fingerprint dataset.
func DefaultSchema() Schema {
	return Schema{
		ScoreColumn: DefaultScoreColumn,
		LabelColumn: DefaultLabelColumn,
	}
}

// IsFeature reports whether name is a feature column under the predicate
// form of the schema.
func (s Schema) IsFeature(name string) bool {
	if name == s.ScoreColumn || name == s.LabelColumn {
		return false
	}
	for _, ex := range s.Exclude {
		if name == ex {
			return false
		}
	}
	if len(s.FeatureColumns) == 0 {
		return true
	}
	for _, f := range s.FeatureColumns {
		if name == f {
			return true
		}
	}
	return false
}

// Resolve returns the feature columns of header, in header order for the
// predicate form and in declared order for an explicit list. It fails when
// the score column or a declared feature is missing, or when no feature
// column remains.
func (s Schema) Resolve(header []string) ([]string, error) {
	if s.ScoreColumn == "" {
		return nil, errors.NewValidationError("score_column", "must not be empty", s.ScoreColumn)
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	if !present[s.ScoreColumn] {
		return nil, errors.NewValidationError("score_column", "column not found in header", s.ScoreColumn)
	}

	var features []string
	if len(s.FeatureColumns) > 0 {
		for _, f := range s.FeatureColumns {
			if !present[f] {
				return nil, errors.NewValidationError("feature_columns", "column not found in header", f)
			}
			if s.IsFeature(f) {
				features = append(features, f)
			}
		}
	} else {
		for _, h := range header {
			if s.IsFeature(h) {
				features = append(features, h)
			}
		}
	}

	if len(features) == 0 {
		return nil, errors.NewEmptyInputError("Schema.Resolve", 0, 0)
	}
	return features, nil
}
