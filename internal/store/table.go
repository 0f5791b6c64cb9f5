// Package store persists record sets as flat CSV tables with a dynamic,
// union-of-all-observed-keys column set.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/alexanderakbik/GarminExport/internal/domain"
)

// Load reads a previously written table. A missing file is not an error and
// yields an empty record set, so a first run starts from scratch.
func Load(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]domain.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(domain.Record, len(header))
		for i, column := range header {
			if i < len(row) {
				record[column] = row[i]
			} else {
				record[column] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// Header computes the column set for a record batch: the sorted union of all
// keys observed across records, with keyField forced to the front.
func Header(keyField string, records []domain.Record) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			seen[key] = struct{}{}
		}
	}
	seen[keyField] = struct{}{}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		if key != keyField {
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)
	return append([]string{keyField}, columns...)
}

// Write rewrites the table in full. The rows land in a temp file first and
// replace the previous table atomically, so an aborted run leaves the prior
// store untouched. Missing fields render as empty cells.
func Write(path, keyField string, records []domain.Record) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	header := Header(keyField, records)
	writer := csv.NewWriter(tmp)
	if err = writer.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, record := range records {
		for i, column := range header {
			row[i] = record[column]
		}
		if err = writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err = writer.Error(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
