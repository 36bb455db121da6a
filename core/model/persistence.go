package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// SaveModel gob-encodes model into filename.
//
//	err := model.SaveModel(forest.Snapshot(), "forest.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create model file %s", filename)
	}
	defer file.Close()

	return SaveModelToWriter(model, file)
}

// LoadModel decodes a gob-encoded model from filename into model, which must
// be a pointer.
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "open model file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter gob-encodes model into w.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModelFromReader decodes a gob-encoded model from r.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}
