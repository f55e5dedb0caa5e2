// Package docio loads LaTeX source files into documents.
package docio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/draftscan/internal/model"
)

// DocumentID returns the identifier under which path's baseline is stored:
// its absolute, cleaned form.
func DocumentID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrapf(err, "docio: resolve %s", path)
	}
	return filepath.Clean(abs), nil
}

// Decode reads r as text in the named encoding. An empty name or any UTF-8
// label returns the bytes unchanged.
func Decode(r io.Reader, encoding string) (string, error) {
	if isUTF8(encoding) {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", eris.Wrap(err, "docio: read")
		}
		return string(data), nil
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return "", eris.Wrapf(err, "docio: unsupported encoding %q", encoding)
	}
	data, err := io.ReadAll(enc.NewDecoder().Reader(r))
	if err != nil {
		return "", eris.Wrapf(err, "docio: decode %s", encoding)
	}
	return string(data), nil
}

// ReadFile loads path as a Document identified by DocumentID(path).
func ReadFile(path, encoding string) (*model.Document, error) {
	id, err := DocumentID(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "docio: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	text, err := Decode(f, encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "docio: load %s", path)
	}
	return model.NewDocument(id, text), nil
}

func isUTF8(encoding string) bool {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}
