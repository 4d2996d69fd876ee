package logs

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/config"
)

var Output io.WriteCloser

// InitializeFileLogger redirects the standard logger to a file in the octofetch home directory,
// so that stream lifecycle logs don't interleave with the printed output.
func InitializeFileLogger() error {
	return InitializeFileLoggerAt(filepath.Join(config.OctofetchHomeDir, "logs.txt"))
}

func InitializeFileLoggerAt(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "couldn't create log directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "couldn't create logs file")
	}
	Output = f
	log.SetOutput(Output)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

func CloseLogger() {
	if Output == nil {
		return
	}
	log.SetOutput(os.Stderr)
	Output.Close()
	Output = nil
}
