package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	ErrOutputDirRequired = errors.New("output_dir is required")
	ErrOutputDirRelative = errors.New("output_dir must be an absolute path")
	ErrOutputDirUnclean  = errors.New("output_dir must be a clean path")
	ErrOutputDirMissing  = errors.New("output_dir does not exist")
	ErrOutputDirNotDir   = errors.New("output_dir is not a directory")
)

// SanitizeName makes a project or clip name safe for EDL comments and file
// names. Control characters are dropped, other unsupported characters become
// '_', and whitespace runs collapse to one space. maxLen counts runes; 0 means
// no limit.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		if nameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	name := []rune(b.String())
	if maxLen > 0 && len(name) > maxLen {
		name = name[:maxLen]
	}
	return strings.TrimRight(string(name), " ")
}

func nameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune("-_.,()", r)
}

// EDLFilename is the export file name for a title. Leading dots are stripped
// so the file is never hidden.
func EDLFilename(title string) string {
	name := strings.TrimLeft(title, ".")
	if name == "" {
		name = "export"
	}
	return name + ".edl"
}

// ValidateOutputDir accepts only an existing absolute directory given in
// clean form.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return ErrOutputDirRequired
	}
	if !filepath.IsAbs(dir) {
		return ErrOutputDirRelative
	}
	if filepath.Clean(dir) != dir {
		return ErrOutputDirUnclean
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrOutputDirMissing
	case err != nil:
		return fmt.Errorf("invalid output_dir: %w", err)
	case !info.IsDir():
		return ErrOutputDirNotDir
	}
	return nil
}
