package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/binprobe/packages/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSuite(t *testing.T) {
	path := writeSuite(t, `
suite: smoke
scenarios:
  - name: echo query
    path: /get
    query:
      probe: "yes"
    expect:
      json:
        args.probe: "yes"
  - name: post body
    method: post
    path: /post
    headers:
      Content-Type: application/json
    body: '{"k":"v"}'
    expect:
      json:
        json.k: v
  - name: missing page
    path: /status/404
    expect:
      status: 404
`)

	scenarios, err := catalog.LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	assert.Equal(t, "smoke/echo-query", scenarios[0].ID)
	assert.Equal(t, "smoke", scenarios[0].Group)
	assert.Equal(t, "smoke/post-body", scenarios[1].ID)
	assert.Equal(t, "smoke/missing-page", scenarios[2].ID)

	env := newEnv(t)
	for _, s := range scenarios {
		assert.NoError(t, s.Run(context.Background(), env), s.ID)
	}
}

func TestLoadSuite_Upload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), []byte("quarterly numbers"), 0o644))

	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
suite: uploads
scenarios:
  - name: file from disk
    method: post
    path: /post
    upload:
      - field: report
        path: report.txt
      - field: note
        value: attached
    expect:
      json:
        files.report: quarterly numbers
        form.note: attached
`), 0o644))

	scenarios, err := catalog.LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "uploads/file-from-disk", scenarios[0].ID)

	env := newEnv(t)
	assert.NoError(t, scenarios[0].Run(context.Background(), env))
}

func TestLoadSuite_UploadOutsideSuiteDir(t *testing.T) {
	path := writeSuite(t, `
scenarios:
  - name: escape
    method: post
    path: /post
    upload:
      - field: f
        path: ../outside.txt
`)

	scenarios, err := catalog.LoadSuite(path)
	require.NoError(t, err)

	err = scenarios[0].Run(context.Background(), newEnv(t))
	require.Error(t, err)
	assert.False(t, catalog.IsCheckError(err))
	assert.Contains(t, err.Error(), "path traversal")
}

func TestLoadSuite_UploadMissingField(t *testing.T) {
	_, err := catalog.LoadSuite(writeSuite(t, `
scenarios:
  - name: nameless part
    method: post
    path: /post
    upload:
      - value: orphan
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload entry missing field")
}

func TestLoadSuite_StatusMismatchIsCheckError(t *testing.T) {
	path := writeSuite(t, `
scenarios:
  - name: wrong status
    path: /status/500
    expect:
      status: 200
`)

	scenarios, err := catalog.LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "suite/wrong-status", scenarios[0].ID)

	env := newEnv(t)
	err = scenarios[0].Run(context.Background(), env)
	require.Error(t, err)
	assert.True(t, catalog.IsCheckError(err))
}

func TestLoadSuite_Invalid(t *testing.T) {
	_, err := catalog.LoadSuite(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = catalog.LoadSuite(writeSuite(t, "suite: empty\nscenarios: []\n"))
	assert.Error(t, err)

	_, err = catalog.LoadSuite(writeSuite(t, `
scenarios:
  - name: bad path
    path: no-slash
`))
	assert.Error(t, err)

	_, err = catalog.LoadSuite(writeSuite(t, "not: [valid"))
	assert.Error(t, err)
}
