// Package poppler locates poppler-utils binaries (pdftotext, pdftoppm).
package poppler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// MissingError reports a poppler binary that could not be found.
type MissingError struct {
	Name string
	Dir  string
	Err  error
}

func (e *MissingError) Error() string {
	if e.Dir != "" {
		return fmt.Sprintf("poppler tool %s not found in %s: %v", e.Name, e.Dir, e.Err)
	}
	return fmt.Sprintf("poppler tool %s not found in PATH: %v", e.Name, e.Err)
}

func (e *MissingError) Unwrap() error { return e.Err }

// Binary resolves name inside dir, or on PATH when dir is empty.
func Binary(dir, name string) (string, error) {
	if dir == "" {
		p, err := exec.LookPath(name)
		if err != nil {
			return "", &MissingError{Name: name, Err: err}
		}
		return p, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", &MissingError{Name: name, Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return "", &MissingError{Name: name, Dir: dir, Err: fmt.Errorf("not a directory")}
	}
	candidate := filepath.Join(dir, name)
	if runtime.GOOS == "windows" {
		candidate += ".exe"
	}
	p, err := exec.LookPath(candidate)
	if err != nil {
		return "", &MissingError{Name: name, Dir: dir, Err: err}
	}
	return p, nil
}
