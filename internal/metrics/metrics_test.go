package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportsObserve(t *testing.T) {
	reg := NewRegistry()
	exports, err := NewExports(reg)
	require.NoError(t, err)

	exports.Observe("csv", 120, nil)
	exports.Observe("csv", 30, nil)
	exports.Observe("zip", 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(exports.total.WithLabelValues("csv", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(exports.total.WithLabelValues("zip", ResultError)))
	assert.Equal(t, 150.0, testutil.ToFloat64(exports.bytes.WithLabelValues("csv")))

	var nilExports *Exports
	nilExports.Observe("csv", 1, nil)
}

func TestNewExportsRejectsDoubleRegistration(t *testing.T) {
	reg := NewRegistry()
	_, err := NewExports(reg)
	require.NoError(t, err)
	_, err = NewExports(reg)
	require.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	reg := NewRegistry()
	exports, err := NewExports(reg)
	require.NoError(t, err)
	exports.Observe("xlsx", 2048, nil)

	path := filepath.Join(t.TempDir(), "run", TextfileName)
	require.NoError(t, WriteTextfile(path, reg))

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `scraper_exports_total{format="xlsx",result="ok"} 1`), text)
	assert.Contains(t, text, `scraper_export_bytes_total{format="xlsx"} 2048`)
}
