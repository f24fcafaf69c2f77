package pack

import (
	"debug/elf"
	"debug/pe"
	"fmt"

	"github.com/gdrec/gdrec/errs"
)

// elfPckSection returns the file offset of the "pck" section of an ELF
// executable, or 0 when absent.
func elfPckSection(path string) (int64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("pack: %v: %w", err, errs.ErrUnrecognized)
	}
	defer f.Close()
	if s := f.Section("pck"); s != nil {
		return int64(s.Offset), nil
	}
	return 0, nil
}

// pePckSection returns the file offset of the "pck" section of a PE
// executable, or 0 when absent.
func pePckSection(path string) (int64, error) {
	f, err := pe.Open(path)
	if err != nil {
		return 0, fmt.Errorf("pack: %v: %w", err, errs.ErrUnrecognized)
	}
	defer f.Close()
	for _, s := range f.Sections {
		if s.Name == "pck" {
			return int64(s.Offset), nil
		}
	}
	return 0, nil
}
