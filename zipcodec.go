package xlcore

import (
	"archive/zip"
	"bytes"
	"io"
)

// zipCodec treats the ZIP container (DEFLATE + central directory) as a
// black box exposing exactly read/exists/write/finalize. archive/zip is
// the implementation backing it; nothing above this type knows it is a ZIP
// file.
type zipCodec interface {
	read(entry string) ([]byte, error)
	exists(entry string) bool
	write(entry string, data []byte)
	finalize() ([]byte, error)
}

// zipReader wraps an already-opened archive for reading.
type zipReader struct {
	zr      *zip.Reader
	entries map[string]*zip.File
}

func openZipCodec(data []byte) (*zipReader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &PackageError{Code: ErrInvalidZipArchive, Detail: err.Error()}
	}
	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}
	return &zipReader{zr: zr, entries: entries}, nil
}

func (z *zipReader) read(entry string) ([]byte, error) {
	f, ok := z.entries[entry]
	if !ok {
		return nil, &PackageError{Code: ErrMissingPart, Part: "/" + entry}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &PackageError{Code: ErrInvalidZipArchive, Part: "/" + entry, Detail: err.Error()}
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (z *zipReader) exists(entry string) bool {
	_, ok := z.entries[entry]
	return ok
}

func (z *zipReader) write(string, []byte) {
	panic("xlcore: zipReader is read-only; use zipWriter")
}

func (z *zipReader) finalize() ([]byte, error) {
	panic("xlcore: zipReader is read-only; use zipWriter")
}

// zipWriter accumulates parts in memory and assembles the archive on
// finalize; on error, the caller simply drops the zipWriter and every
// accumulated buffer is released with it.
type zipWriter struct {
	order   []string
	entries map[string][]byte
}

func newZipCodec() *zipWriter {
	return &zipWriter{entries: make(map[string][]byte)}
}

func (z *zipWriter) read(entry string) ([]byte, error) {
	b, ok := z.entries[entry]
	if !ok {
		return nil, &PackageError{Code: ErrMissingPart, Part: "/" + entry}
	}
	return b, nil
}

func (z *zipWriter) exists(entry string) bool {
	_, ok := z.entries[entry]
	return ok
}

func (z *zipWriter) write(entry string, data []byte) {
	if _, exists := z.entries[entry]; !exists {
		z.order = append(z.order, entry)
	}
	z.entries[entry] = data
}

func (z *zipWriter) finalize() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range z.order {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(z.entries[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
