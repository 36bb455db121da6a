package dataset

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

const sampleCSV = `PubchemFP0,PubchemFP1,PubchemFP2,pIC50
1,0,1,7.2
1,1,0,4.1
1,0,0,5.5
1,1,1,6.0
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV), DefaultSchema())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if ds.Len() != 4 {
		t.Errorf("Len() = %d, want 4", ds.Len())
	}
	rows, cols := ds.Features().Dims()
	if rows != 4 || cols != 3 {
		t.Errorf("feature dims = (%d, %d), want (4, 3)", rows, cols)
	}
	wantNames := []string{"PubchemFP0", "PubchemFP1", "PubchemFP2"}
	for j, name := range ds.Features().Names() {
		if name != wantNames[j] {
			t.Errorf("name[%d] = %s, want %s", j, name, wantNames[j])
		}
	}
	if ds.Score(0) != 7.2 || ds.Score(3) != 6.0 {
		t.Errorf("scores = %v", ds.Scores())
	}
	if ds.Features().At(1, 1) != 1 {
		t.Errorf("At(1, 1) = %v, want 1", ds.Features().At(1, 1))
	}
}

func TestReadCSV_MissingScoreKeptAsNaN(t *testing.T) {
	in := "f1,pIC50\n1,7\n0,\n1,abc\n"
	ds, err := ReadCSV(strings.NewReader(in), DefaultSchema())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !math.IsNaN(ds.Score(1)) || !math.IsNaN(ds.Score(2)) {
		t.Errorf("expected NaN scores, got %v", ds.Scores())
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		schema Schema
	}{
		{
			name:   "missing score column",
			in:     "f1,f2\n1,2\n",
			schema: DefaultSchema(),
		},
		{
			name:   "non-numeric feature",
			in:     "f1,pIC50\nx,7\n",
			schema: DefaultSchema(),
		},
		{
			name:   "declared feature missing",
			in:     "f1,pIC50\n1,7\n",
			schema: Schema{ScoreColumn: "pIC50", FeatureColumns: []string{"f1", "f9"}},
		},
		{
			name:   "no feature columns",
			in:     "pIC50,class\n7,active\n",
			schema: DefaultSchema(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in), tt.schema); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSchema_Resolve(t *testing.T) {
	header := []string{"molecule_chembl_id", "f1", "f2", "pIC50", "class"}

	tests := []struct {
		name   string
		schema Schema
		want   []string
	}{
		{
			name:   "predicate with exclusion",
			schema: Schema{ScoreColumn: "pIC50", LabelColumn: "class", Exclude: []string{"molecule_chembl_id"}},
			want:   []string{"f1", "f2"},
		},
		{
			name:   "explicit list keeps declared order",
			schema: Schema{ScoreColumn: "pIC50", LabelColumn: "class", FeatureColumns: []string{"f2", "f1"}},
			want:   []string{"f2", "f1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.schema.Resolve(header)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := Schema{ScoreColumn: "pIC50", LabelColumn: "class"}.Resolve([]string{"pIC50", "class"})
	if !errors.Is(err, errors.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestFrame(t *testing.T) {
	f, err := NewFrame([]string{"a", "b", "c"}, 2, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("NewFrame() error = %v", err)
	}

	sel := f.SelectColumns([]int{2, 0})
	if r, c := sel.Dims(); r != 2 || c != 2 {
		t.Fatalf("SelectColumns dims = (%d, %d)", r, c)
	}
	if sel.Names()[0] != "c" || sel.At(1, 0) != 6 || sel.At(1, 1) != 4 {
		t.Errorf("unexpected selection %v %v", sel.Names(), sel.Row(1))
	}

	rows := f.SelectRows([]int{1})
	if rows.Row(0)[0] != 4 {
		t.Errorf("SelectRows row = %v", rows.Row(0))
	}

	if j, ok := f.Index("b"); !ok || j != 1 {
		t.Errorf("Index(b) = %d, %v", j, ok)
	}
	if col := f.Column(1); col[0] != 2 || col[1] != 5 {
		t.Errorf("Column(1) = %v", col)
	}
	if f.T().At(2, 1) != 6 {
		t.Errorf("T().At(2, 1) = %v", f.T().At(2, 1))
	}

	empty, err := NewFrame([]string{"a"}, 0, nil)
	if err != nil {
		t.Fatalf("NewFrame(empty) error = %v", err)
	}
	if r, c := empty.Dims(); r != 0 || c != 1 {
		t.Errorf("empty dims = (%d, %d)", r, c)
	}
	if r, c := empty.Dense().Dims(); r != 0 || c != 0 {
		t.Errorf("empty Dense dims = (%d, %d)", r, c)
	}

	if _, err := NewFrame([]string{"a", "b"}, 2, []float64{1}); err == nil {
		t.Error("expected dimension error")
	}
}

func TestLoader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fp.csv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	loader := NewLoader(DefaultSchema())
	loader.Client = srv.Client()

	ds, err := loader.Load(context.Background(), srv.URL+"/fp.csv")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.Len() != 4 {
		t.Errorf("Len() = %d, want 4", ds.Len())
	}

	if _, err := loader.Load(context.Background(), srv.URL+"/missing.csv"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	ds, err := Load(context.Background(), path, DefaultSchema())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sub := ds.Subset([]int{3, 0})
	if sub.Len() != 2 || sub.Score(0) != 6.0 || sub.Features().At(1, 0) != 1 {
		t.Errorf("unexpected subset %v", sub)
	}

	if _, err := Load(context.Background(), "", DefaultSchema()); err == nil {
		t.Error("expected error for empty source")
	}
}
