package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// DefaultSource is the PubChem fingerprint table of ChEMBL AChE bioactivity
// records.
const DefaultSource = "https://raw.githubusercontent.com/dataprofessor/data/master/acetylcholinesterase_06_bioactivity_data_3class_pIC50_pubchem_fp.csv"

// Loader opens and parses a dataset source.
type Loader struct {
	Client *http.Client
	Schema Schema
}

// NewLoader returns a Loader using http.DefaultClient.
func NewLoader(schema Schema) *Loader {
	return &Loader{Client: http.DefaultClient, Schema: schema}
}

// Load reads the dataset at source, an http(s) URL or a local path.
func (l *Loader) Load(ctx context.Context, source string) (*Dataset, error) {
	rc, err := l.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := ReadCSV(rc, l.Schema)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", source)
	}
	return ds, nil
}

// Open returns a reader over the raw bytes of source.
func (l *Loader) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, errors.NewValidationError("dataset.source", "must not be empty", source)
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", source)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", source)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", source)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf("fetch %s: unexpected status %s", source, resp.Status)
	}
	return resp.Body, nil
}

// Load reads source with the default client.
func Load(ctx context.Context, source string, schema Schema) (*Dataset, error) {
	return NewLoader(schema).Load(ctx, source)
}

// String describes a dataset for logs.
func (d *Dataset) String() string {
	_, c := d.features.Dims()
	return fmt.Sprintf("Dataset(records=%d, features=%d, score=%s)", d.Len(), c, d.schema.ScoreColumn)
}
