package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
)

// EncodeDataset writes d as indented UTF-8 JSON without HTML escaping
func EncodeDataset(w io.Writer, d *models.Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(err, "failed to encode dataset")
	}
	return nil
}

// WriteDataset writes the dataset document to path. Readers never observe
// a partially written file.
func WriteDataset(path string, d *models.Dataset) error {
	s, err := StageDataset(path, d)
	if err != nil {
		return err
	}
	return s.Commit()
}

// StageDataset encodes the dataset next to path without replacing it
func StageDataset(path string, d *models.Dataset) (*Staged, error) {
	if d == nil {
		return nil, errors.New("nil dataset")
	}
	return Stage(path, func(w io.Writer) error {
		return EncodeDataset(w, d)
	})
}

// ReadDataset loads a dataset document previously written by WriteDataset
func ReadDataset(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %s", path)
	}
	defer f.Close()

	var d models.Dataset
	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return nil, errors.Wrapf(err, "failed to decode dataset %s", path)
	}
	return &d, nil
}
