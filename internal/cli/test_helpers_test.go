package cli

import (
	"archive/zip"
	"bytes"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dailyverse/internal/config"
	"github.com/runnerr0/dailyverse/internal/logging"
	"github.com/runnerr0/dailyverse/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

const testArchiveXML = `<?xml version="1.0" encoding="UTF-8"?>
<FreeXml>
<Losungen>
<Datum>2025-03-10T00:00:00</Datum>
<Losungstext>Der Herr ist mein Hirte</Losungstext>
<Losungsvers>Psalm 23,1</Losungsvers>
<Lehrtext>Ich bin der gute Hirte</Lehrtext>
<Lehrtextvers>Johannes 10,11</Lehrtextvers>
</Losungen>
</FreeXml>
`

// testNow is the fixed clock used by command tests.
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

// newArchiveServer serves testArchiveXML zipped for every request.
func newArchiveServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Losungen Free 2025.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(testArchiveXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		rw.WriteHeader(status)
		if status == http.StatusOK {
			rw.Write(buf.Bytes())
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// newTestApp wires an app over an in-memory database, a temp cache directory
// and a local archive server.
func newTestApp(t *testing.T, status int) (*app, *atomic.Int32) {
	t.Helper()
	srv, requests := newArchiveServer(t, status)

	cfg := config.DefaultConfig()
	cfg.Archive.URLTemplate = srv.URL + "/Losung_%d_XML.zip"

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.NewMigrationRunner(db).Run())

	a, err := newApp(cfg, db, t.TempDir(), logging.Discard(), func() time.Time { return testNow })
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, requests
}
