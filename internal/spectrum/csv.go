package spectrum

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

var header = []string{"wavenumber", "transmittance"}

// ErrLengthMismatch is returned when the axis and values differ in length.
var ErrLengthMismatch = errors.New("axis and values differ in length")

// WriteCSV writes axis/values pairs to dir/name and syncs the file and its
// directory before returning the final path. The file appears atomically.
func WriteCSV(dir, name string, axis, values []float64) (string, error) {
	if len(axis) != len(values) {
		return "", fmt.Errorf("%w: %d wavenumbers, %d values", ErrLengthMismatch, len(axis), len(values))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create spectra dir: %w", err)
	}

	final := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp sidecar: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		cleanup()
		return "", fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 2)
	for i := range axis {
		row[0] = strconv.FormatFloat(axis[i], 'g', -1, 64)
		row[1] = strconv.FormatFloat(values[i], 'g', -1, 64)
		if err := w.Write(row); err != nil {
			cleanup()
			return "", fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return "", fmt.Errorf("flush sidecar: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("sync sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close sidecar: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename sidecar: %w", err)
	}
	if err := syncDir(dir); err != nil {
		return "", err
	}
	return final, nil
}

func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open spectra dir for sync: %w", err)
	}
	defer unix.Close(fd)
	if err := unix.Fsync(fd); err != nil {
		return fmt.Errorf("sync spectra dir: %w", err)
	}
	return nil
}

// ReadCSV loads a sidecar written by WriteCSV.
func ReadCSV(path string) (axis, values []float64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 2
	first, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if first[0] != header[0] || first[1] != header[1] {
		return nil, nil, fmt.Errorf("unexpected header %q", first)
	}
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read line %d: %w", line, err)
		}
		x, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d wavenumber: %w", line, err)
		}
		y, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d transmittance: %w", line, err)
		}
		axis = append(axis, x)
		values = append(values, y)
	}
	return axis, values, nil
}
