package configutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the local override for a config file,
// `config.json5` becomes `config.local.json5`.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

// ReadConfig reads the json5 file `name` into out, keeping whatever out
// already holds for keys the file does not set. A sibling local override
// (see LocalPath) is merged on top when present, its non-zero values win.
//
// It returns the files that were actually read, os.ErrNotExist is returned
// only when neither file exists.
func ReadConfig[T any](name string, out *T) ([]string, error) {
	var read []string

	base, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(base) > 0 {
		err = json5.Unmarshal(base, out)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		read = append(read, name)
	}

	localPath := LocalPath(name)
	local, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return read, err
	}
	if len(local) > 0 {
		var override T
		err = json5.Unmarshal(local, &override)
		if err != nil {
			return read, fmt.Errorf("parse %s: %w", localPath, err)
		}
		err = mergo.Merge(out, override, mergo.WithOverride)
		if err != nil {
			return read, err
		}
		read = append(read, localPath)
	}

	if len(read) == 0 {
		return nil, os.ErrNotExist
	}
	return read, nil
}
