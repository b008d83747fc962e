package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteSidecar writes a small two-point spectrum CSV at path.
func WriteSidecar(t testing.TB, path string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("wavenumber,transmittance\n4000,50\n3999,51\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Spectrum returns n transmittance values starting at base.
func Spectrum(n int, base float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = base + float64(i)
	}
	return values
}
