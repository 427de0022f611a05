package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

// descriptorSection is the ini section holding plugin keys. Files without it
// are read from the default (unnamed) section.
const descriptorSection = "plugin"

// Info is the static descriptor of a plugin, read from <dir>/<dir>.ini.
// Only Name identifies a plugin; the rest is informational.
type Info struct {
	Name         string   `json:"name"`
	Pathname     string   `json:"pathname,omitempty"`
	Depends      []string `json:"depends,omitempty"`
	Author       string   `json:"author,omitempty"`
	URL          string   `json:"url,omitempty"`
	ShortDesc    string   `json:"shortDesc,omitempty"`
	LongDesc     string   `json:"longDesc,omitempty"`
	IconPathname string   `json:"iconPathname,omitempty"`
}

// Clone returns a deep copy of i.
func (i Info) Clone() Info {
	i.Depends = slices.Clone(i.Depends)
	return i
}

// Equal reports whether i and o describe the same plugin.
func (i Info) Equal(o Info) bool {
	return i.Name == o.Name
}

// ParseDepends splits a comma-separated dependency list, keeping order and
// dropping blanks.
func ParseDepends(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// DescriptorPath returns the descriptor file expected inside a plugin directory.
func DescriptorPath(dir string) string {
	return filepath.Join(dir, filepath.Base(dir)+".ini")
}

// ReadInfo parses the descriptor of the plugin living in dir.
func ReadInfo(dir string) (Info, error) {
	path := DescriptorPath(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	return parseInfo(path, dir, data)
}

func parseInfo(path, dir string, data []byte) (Info, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}

	sec, err := f.GetSection(descriptorSection)
	if err != nil {
		sec = f.Section("")
	}

	name := strings.TrimSpace(sec.Key("name").String())
	if name == "" {
		return Info{}, fmt.Errorf("%s: missing name", path)
	}
	if strings.ContainsAny(name, ", \t\r\n") {
		return Info{}, fmt.Errorf("%s: invalid name %q", path, name)
	}

	info := Info{
		Name:      name,
		Pathname:  dir,
		Depends:   ParseDepends(sec.Key("depends").String()),
		Author:    sec.Key("author").String(),
		URL:       sec.Key("url").String(),
		ShortDesc: sec.Key("short_desc").String(),
		LongDesc:  sec.Key("long_desc").String(),
	}
	if icon := sec.Key("icon").String(); icon != "" {
		if !filepath.IsAbs(icon) {
			icon = filepath.Join(dir, icon)
		}
		info.IconPathname = icon
	}
	return info, nil
}
