package job

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/klauspost/compress/zip"
)

type output struct {
	name    string
	content []byte
}

// zipOutputs stores every report as an entry of a single archive
func zipOutputs(outputs []output) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, o := range outputs {
		w, err := zw.Create(o.name)
		if err != nil {
			return nil, fmt.Errorf("adding %s to archive: %w", o.name, err)
		}
		if _, err := w.Write(o.content); err != nil {
			return nil, fmt.Errorf("writing %s to archive: %w", o.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// tableCSV renders the result table with CRLF line endings
func tableCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing table header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("writing table: %w", err)
	}
	return buf.Bytes(), nil
}
