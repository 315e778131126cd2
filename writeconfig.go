package main

import (
	"fmt"
	"io"

	"github.com/phobologic/grepy/internal/config"
)

// writeConfig writes the default config to path, or prints it as YAML to
// stdout when path is "-". An existing file is kept unless force is set.
func writeConfig(path string, force bool, stdout, stderr io.Writer) error {
	cfg := config.DefaultConfig()
	if path == "-" {
		data, err := cfg.Marshal(config.FileNames[0])
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	}

	if err := cfg.Save(path, force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stderr, "wrote default config to %s\n", path)
	return nil
}
