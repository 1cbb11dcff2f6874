package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"erbgo/internal/common/errors"
	"erbgo/internal/common/logging"
	"erbgo/internal/engine"
)

// TemplateExt is the extension LoadDir registers.
const TemplateExt = ".erb"

// LoadDir registers every *.erb file under dir. A file is named by its
// slash-separated path relative to dir without the extension, so
// dir/mail/welcome.html.erb becomes "mail/welcome.html". The first file
// that fails to compile stops the walk.
func LoadDir(eng *engine.Engine, dir string, opts engine.Options) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("template directory " + dir)
		}
		return nil, errors.InternalError("failed to read template directory", err)
	}
	if !info.IsDir() {
		return nil, errors.ValidationError(dir + " is not a directory")
	}

	var names []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), TemplateExt) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		name := strings.TrimSuffix(rel, TemplateExt)

		source, err := os.ReadFile(path)
		if err != nil {
			return errors.InternalError("failed to read template", err).WithContext("path", path)
		}

		fileOpts := opts
		fileOpts.Filename = rel
		if _, err := eng.Register(name, string(source), fileOpts); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("templates loaded",
		logging.String("dir", dir),
		logging.Int("count", len(names)),
	)
	return names, nil
}
