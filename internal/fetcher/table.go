package fetcher

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxFileSizeBytes guards against oversized uploads; files beyond this are
// rejected before parsing.
const MaxFileSizeBytes = 50 << 20

// ReadTable reads a lead file and returns its header and data rows,
// dispatching on the file extension.
func ReadTable(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx", ".xls":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, nil, eris.Errorf("fetcher: unsupported file type %q (want .csv, .xlsx, or .xls)", filepath.Ext(path))
	}
}
