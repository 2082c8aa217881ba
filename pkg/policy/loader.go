package policy

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/cperrin88/aclman/pkg/errors"
)

// DefaultFilePrefix is the reserved name prefix of policy files. Every file
// in a directory whose name starts with the prefix is loaded; multiple files
// merge in name order, later files overriding earlier ones.
const DefaultFilePrefix = "..aclman"

// LoadDirectory parses the local policy files of dir into a table. Returns
// nil if the directory contains no policy files.
func LoadDirectory(dir, prefix string) (*Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrExternalOp, "listing %s: %v", dir, err)
	}

	var sources []interface{}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) && !entry.IsDir() {
			sources = append(sources, filepath.Join(dir, entry.Name()))
		}
	}
	if len(sources) == 0 {
		return nil, nil
	}

	opts := ini.LoadOptions{
		InsensitiveKeys:  true,
		AllowBooleanKeys: true, // IGNORE is a presence-only flag
	}
	file, err := ini.LoadSources(opts, sources[0], sources[1:]...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfig, "loading policy files in %s: %v", dir, err)
	}

	table := NewTable()
	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		parsed, err := parseSection(sec)
		if err != nil {
			return nil, errors.Wrapf(err, "section [%s] in %s", sec.Name(), dir)
		}
		table.Set(sec.Name(), parsed)
	}
	return table, nil
}

func parseSection(sec *ini.Section) (*Section, error) {
	s := &Section{
		Owner:  sec.Key("OWNER").String(),
		Group:  sec.Key("GROUP").String(),
		ACL:    sec.Key("ACL").String(),
		DirACL: sec.Key("DIRACL").String(),
		Ignore: sec.HasKey("IGNORE"),
	}
	if sec.HasKey("FINAL") {
		final, err := parseFinal(sec.Key("FINAL").String())
		if err != nil {
			return nil, err
		}
		s.Final = final
	}
	return s, nil
}

func parseFinal(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes":
		return true, nil
	case "false", "no":
		return false, nil
	}
	return false, errors.Wrapf(errors.ErrInvalidFinal, "%q", value)
}
