// Package manifest merges the per-target browser extension manifests.
//
// Every target has a base manifest shared by all targets and an override
// manifest of its own. The merged manifest is a shallow merge of the two with
// the version taken from package.json.
package manifest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// BaseFile is the manifest shared by all targets.
const BaseFile = "manifest.base.json"

var (
	ErrMissingFile = errors.New("missing file")
	ErrInvalidJSON = errors.New("invalid JSON object")
	ErrNoVersion   = errors.New(`package.json has no "version" field`)
)

// TargetFile returns the name of the override manifest for target.
func TargetFile(target string) string {
	return "manifest." + target + ".json"
}

// Load reads the base and target manifests from dir and the package file at
// pkgPath, and merges them.
func Load(dir, pkgPath, target string) ([]byte, error) {
	base, err := readFile("base manifest", filepath.Join(dir, BaseFile))
	if err != nil {
		return nil, err
	}
	override, err := readFile("target manifest", filepath.Join(dir, TargetFile(target)))
	if err != nil {
		return nil, err
	}
	pkg, err := readFile("package.json", pkgPath)
	if err != nil {
		return nil, err
	}

	return Merge(base, override, pkg)
}

// Merge returns base with every top-level key of override set on it, and
// "version" set to the version of pkg. Keys keep the order they have in base;
// keys only present in override are appended. The result is indented.
func Merge(base, override, pkg []byte) ([]byte, error) {
	for _, doc := range []struct {
		name string
		data []byte
	}{
		{"base manifest", base},
		{"target manifest", override},
		{"package.json", pkg},
	} {
		if !gjson.ValidBytes(doc.data) || !gjson.ParseBytes(doc.data).IsObject() {
			return nil, errors.Wrap(ErrInvalidJSON, doc.name)
		}
	}

	version, err := Version(pkg)
	if err != nil {
		return nil, err
	}

	out := append([]byte(nil), base...)
	gjson.ParseBytes(override).ForEach(func(key, value gjson.Result) bool {
		out, err = sjson.SetRawBytes(out, keyPath(key.String()), []byte(value.Raw))
		return err == nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "merge target manifest")
	}

	out, err = sjson.SetBytes(out, "version", version)
	if err != nil {
		return nil, errors.Wrap(err, "set version")
	}

	return pretty.Pretty(out), nil
}

// Version returns the non-empty "version" string of a package.json document.
func Version(pkg []byte) (string, error) {
	v := gjson.GetBytes(pkg, "version")
	if v.Type != gjson.String || v.String() == "" {
		return "", ErrNoVersion
	}

	return v.String(), nil
}

func readFile(what, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrMissingFile, "%s %s", what, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", what)
	}

	return data, nil
}

// keyPath escapes a top-level object key for use as an sjson path.
func keyPath(key string) string {
	var b strings.Builder
	digits := key != ""
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		if r < '0' || r > '9' {
			digits = false
		}
		b.WriteRune(r)
	}

	// A numeric component would address an array index.
	if digits {
		return ":" + b.String()
	}

	return b.String()
}
