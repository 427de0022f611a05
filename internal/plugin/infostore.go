package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/soyeahso/eina/internal/logging"
)

// InfoStore discovers and caches plugin descriptors found in a set of
// search directories.
type InfoStore struct {
	paths  []string
	infos  []Info
	byName map[string]int
	log    *logging.Logger
}

// NewInfoStore creates a store over the given search paths. It does not scan.
func NewInfoStore(paths []string, log *logging.Logger) *InfoStore {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		cleaned = append(cleaned, cleanPath(p))
	}
	return &InfoStore{
		paths:  cleaned,
		byName: make(map[string]int),
		log:    log,
	}
}

// Scan drops the cache and rereads every search path. Each subdirectory
// holding a valid <sub>/<sub>.ini contributes one Info; malformed descriptors
// are logged and skipped. The first path to provide a name wins.
func (s *InfoStore) Scan() int {
	s.infos = nil
	s.byName = make(map[string]int)

	for _, dir := range s.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.log.Debug().Str("path", dir).Msg("search path missing")
			} else {
				s.log.Warn().Err(err).Str("path", dir).Msg("cannot read search path")
			}
			continue
		}

		for _, entry := range entries {
			pdir := filepath.Join(dir, entry.Name())
			if st, err := os.Stat(pdir); err != nil || !st.IsDir() {
				continue
			}
			if _, err := os.Stat(DescriptorPath(pdir)); err != nil {
				s.log.Debug().Str("dir", pdir).Msg("no descriptor, skipping")
				continue
			}

			info, err := ReadInfo(pdir)
			if err != nil {
				s.log.Warn().Err(err).Str("dir", pdir).Msg("malformed plugin descriptor")
				continue
			}
			if _, dup := s.byName[info.Name]; dup {
				s.log.Warn().
					Str("plugin", info.Name).
					Str("dir", pdir).
					Msg("duplicate plugin name, keeping earlier path")
				continue
			}

			s.byName[info.Name] = len(s.infos)
			s.infos = append(s.infos, info)
		}
	}

	s.log.Debug().Int("count", len(s.infos)).Msg("plugin scan complete")
	return len(s.infos)
}

// QueryAll returns copies of all cached descriptors in scan order.
func (s *InfoStore) QueryAll() []Info {
	out := make([]Info, len(s.infos))
	for i, info := range s.infos {
		out[i] = info.Clone()
	}
	return out
}

// Lookup returns a copy of the cached descriptor named name.
func (s *InfoStore) Lookup(name string) (Info, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Info{}, false
	}
	return s.infos[idx].Clone(), true
}

// LookupPathname returns a copy of the cached descriptor for plugin dir.
func (s *InfoStore) LookupPathname(dir string) (Info, bool) {
	dir = cleanPath(dir)
	for _, info := range s.infos {
		if info.Pathname == dir {
			return info.Clone(), true
		}
	}
	return Info{}, false
}

// SearchPaths returns the configured search directories.
func (s *InfoStore) SearchPaths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Contains reports whether dir is one of the search directories.
func (s *InfoStore) Contains(dir string) bool {
	dir = cleanPath(dir)
	for _, p := range s.paths {
		if p == dir {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
