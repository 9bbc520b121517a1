package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func keys(t *testing.T, doc []byte) []string {
	t.Helper()

	var out []string
	gjson.ParseBytes(doc).ForEach(func(key, _ gjson.Result) bool {
		out = append(out, key.String())
		return true
	})

	return out
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := []byte(`{
		"manifest_version": 2,
		"name": "Counter",
		"version": "0.0.0",
		"permissions": ["storage"],
		"action": {"default_popup": "popup/popup.html"}
	}`)
	override := []byte(`{
		"manifest_version": 3,
		"browser_specific_settings": {"gecko": {"id": "counter@example.org"}},
		"action": {"default_title": "Count"}
	}`)
	pkg := []byte(`{"name": "counter", "version": "1.4.2"}`)

	got, err := Merge(base, override, pkg)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(got))

	assert.Equal(t, []string{
		"manifest_version", "name", "version", "permissions", "action",
		"browser_specific_settings",
	}, keys(t, got))

	doc := gjson.ParseBytes(got)
	assert.Equal(t, int64(3), doc.Get("manifest_version").Int())
	assert.Equal(t, "1.4.2", doc.Get("version").String())
	assert.Equal(t, "Counter", doc.Get("name").String())
	assert.Equal(t, "counter@example.org",
		doc.Get("browser_specific_settings.gecko.id").String())

	// The merge is shallow: nested objects are replaced, not combined.
	assert.Equal(t, "Count", doc.Get("action.default_title").String())
	assert.False(t, doc.Get("action.default_popup").Exists())
}

func TestMerge_versionAddedWhenBaseHasNone(t *testing.T) {
	t.Parallel()

	got, err := Merge([]byte(`{"name":"x"}`), []byte(`{}`), []byte(`{"version":"2.0.0"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "version"}, keys(t, got))
	assert.Equal(t, "2.0.0", gjson.GetBytes(got, "version").String())
}

func TestMerge_specialKeys(t *testing.T) {
	t.Parallel()

	override := []byte(`{"a.b": 1, "*": 2, "c:d": 3}`)

	got, err := Merge([]byte(`{}`), override, []byte(`{"version":"1"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.b", "*", "c:d", "version"}, keys(t, got))
	assert.Equal(t, int64(1), gjson.GetBytes(got, `a\.b`).Int())
}

func TestMerge_errors(t *testing.T) {
	t.Parallel()

	valid := []byte(`{}`)
	pkg := []byte(`{"version":"1.0.0"}`)

	tests := []struct {
		name     string
		base     []byte
		override []byte
		pkg      []byte
		wantErr  error
	}{
		{"invalid base", []byte(`{`), valid, pkg, ErrInvalidJSON},
		{"array override", valid, []byte(`[]`), pkg, ErrInvalidJSON},
		{"invalid package", valid, valid, []byte(`nope`), ErrInvalidJSON},
		{"no version", valid, valid, []byte(`{"name":"x"}`), ErrNoVersion},
		{"empty version", valid, valid, []byte(`{"version":""}`), ErrNoVersion},
		{"numeric version", valid, valid, []byte(`{"version":1}`), ErrNoVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(tt.base, tt.override, tt.pkg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifests := filepath.Join(dir, "manifests")
	require.NoError(t, os.MkdirAll(manifests, 0o755))

	pkgPath := filepath.Join(dir, "package.json")
	write := func(path, data string) {
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}

	_, err := Load(manifests, pkgPath, "firefox")
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Contains(t, err.Error(), BaseFile)

	write(filepath.Join(manifests, BaseFile), `{"name":"x"}`)
	_, err = Load(manifests, pkgPath, "firefox")
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Contains(t, err.Error(), TargetFile("firefox"))

	write(filepath.Join(manifests, TargetFile("firefox")), `{"gecko":true}`)
	_, err = Load(manifests, pkgPath, "firefox")
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Contains(t, err.Error(), "package.json")

	write(pkgPath, `{"version":"3.1.0"}`)
	got, err := Load(manifests, pkgPath, "firefox")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "gecko", "version"}, keys(t, got))
}

func TestVersion(t *testing.T) {
	t.Parallel()

	v, err := Version([]byte(`{"version":"0.1.0"}`))
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", v)

	_, err = Version([]byte(`{}`))
	assert.ErrorIs(t, err, ErrNoVersion)
}
