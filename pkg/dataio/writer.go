// pkg/dataio/writer.go
package dataio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// StagedFile is an output written to a temporary file next to its final
// location, waiting to be renamed into place
type StagedFile struct {
	Path   string // Final location
	temp   string
	backup string // Previous content of Path while a CommitAll is in progress
}

// Stage writes content through write into a temporary file in the target's
// directory. Nothing is visible at path until Commit.
func Stage(path string, write func(io.Writer) error) (*StagedFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.NewError(model.ErrorKindOutput, "stage", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, model.NewError(model.ErrorKindOutput, "stage", path, err)
	}
	staged := &StagedFile{Path: path, temp: tmp.Name()}

	buffered := bufio.NewWriter(tmp)
	if err := write(buffered); err != nil {
		tmp.Close()
		staged.Discard()
		return nil, model.NewError(model.ErrorKindOutput, "stage", path, err)
	}
	if err := buffered.Flush(); err != nil {
		tmp.Close()
		staged.Discard()
		return nil, model.NewError(model.ErrorKindOutput, "stage", path, err)
	}
	if err := tmp.Close(); err != nil {
		staged.Discard()
		return nil, model.NewError(model.ErrorKindOutput, "stage", path, err)
	}

	return staged, nil
}

// Commit moves the staged file into its final location
func (s *StagedFile) Commit() error {
	if err := os.Rename(s.temp, s.Path); err != nil {
		s.Discard()
		return model.NewError(model.ErrorKindOutput, "commit", s.Path, err)
	}
	return nil
}

// Discard removes the temporary file
func (s *StagedFile) Discard() {
	_ = os.Remove(s.temp)
}

// CommitAll commits staged files in order. When one fails, the files already
// committed get their previous content back and the remaining temporary
// files are removed.
func CommitAll(files ...*StagedFile) error {
	var committed []*StagedFile
	fail := func(i int, err error) error {
		for _, rest := range files[i:] {
			rest.Discard()
		}
		for j := len(committed) - 1; j >= 0; j-- {
			committed[j].rollback()
		}
		return err
	}

	for i, f := range files {
		if err := f.keepPrevious(); err != nil {
			return fail(i, err)
		}
		if err := f.Commit(); err != nil {
			f.rollback()
			return fail(i+1, err)
		}
		committed = append(committed, f)
	}

	for _, f := range committed {
		if f.backup != "" {
			_ = os.Remove(f.backup)
			f.backup = ""
		}
	}
	return nil
}

// keepPrevious moves an existing file at Path aside
func (s *StagedFile) keepPrevious() error {
	if _, err := os.Lstat(s.Path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return model.NewError(model.ErrorKindOutput, "commit", s.Path, err)
	}
	backup := s.temp + ".prev"
	if err := os.Rename(s.Path, backup); err != nil {
		return model.NewError(model.ErrorKindOutput, "commit", s.Path, err)
	}
	s.backup = backup
	return nil
}

// rollback puts the previous file back at Path, or removes Path when there
// was none
func (s *StagedFile) rollback() {
	if s.backup == "" {
		_ = os.Remove(s.Path)
		return
	}
	_ = os.Rename(s.backup, s.Path)
	s.backup = ""
}

// DiscardAll removes every staged temporary file
func DiscardAll(files ...*StagedFile) {
	for _, f := range files {
		if f != nil {
			f.Discard()
		}
	}
}

// WriteAtomic writes a file through a temporary file and a rename
func WriteAtomic(path string, write func(io.Writer) error) error {
	staged, err := Stage(path, write)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// StageDataset stages a dataset in the format implied by the path extension
func StageDataset(path string, ds *model.Dataset) (*StagedFile, error) {
	switch filepath.Ext(path) {
	case ".csv":
		return Stage(path, func(w io.Writer) error { return WriteCSV(w, ds) })
	case ".json":
		return Stage(path, func(w io.Writer) error { return WriteJSON(w, ds) })
	default:
		return nil, model.NewError(model.ErrorKindOutput, "stage", path,
			fmt.Errorf("unsupported output type %q", filepath.Ext(path)))
	}
}
