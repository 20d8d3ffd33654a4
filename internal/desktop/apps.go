package desktop

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode"
)

// Application is one installed, launchable entry.
type Application struct {
	Name string
	Path string
}

// appDirs returns where installed applications live on goos, and the file
// extension that marks one.
func appDirs(goos string) ([]string, string) {
	home, _ := os.UserHomeDir()
	switch goos {
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramData"), "Microsoft", "Windows", "Start Menu", "Programs"),
			filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Start Menu", "Programs"),
		}, ".lnk"
	case "darwin":
		return []string{
			"/Applications",
			"/System/Applications",
			filepath.Join(home, "Applications"),
		}, ".app"
	default:
		return []string{
			"/usr/share/applications",
			"/usr/local/share/applications",
			filepath.Join(home, ".local", "share", "applications"),
		}, ".desktop"
	}
}

// Applications lists installed applications on this host.
func Applications() []string {
	return names(Installed())
}

// Installed returns the application entries on this host.
func Installed() []Application {
	dirs, ext := appDirs(runtime.GOOS)
	return scanApplications(dirs, ext, runtime.GOOS == "windows")
}

// ListApplications returns the sorted, de-duplicated base names of entries
// with extension ext under dirs. Missing directories are skipped.
func ListApplications(dirs []string, ext string, recursive bool) []string {
	return names(scanApplications(dirs, ext, recursive))
}

// scanApplications keeps the first path seen for each name.
func scanApplications(dirs []string, ext string, recursive bool) []Application {
	seen := make(map[string]string)
	add := func(path string) {
		name := filepath.Base(path)
		if !strings.EqualFold(filepath.Ext(name), ext) {
			return
		}
		name = strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := seen[name]; !ok {
			seen[name] = path
		}
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if recursive {
			_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if !d.IsDir() {
					add(path)
				}
				return nil
			})
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			add(filepath.Join(dir, e.Name()))
		}
	}

	out := make([]Application, 0, len(seen))
	for name, path := range seen {
		out = append(out, Application{Name: name, Path: path})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func names(apps []Application) []string {
	out := make([]string, len(apps))
	for i, a := range apps {
		out[i] = a.Name
	}
	return out
}

// FindApplication matches a spoken or model-chosen name against apps,
// ignoring case, spaces and punctuation. A reverse-DNS id such as
// org.gnome.Nautilus also matches on its last segment when that is unique.
func FindApplication(apps []Application, name string) (Application, bool) {
	want := appKey(name)
	if want == "" {
		return Application{}, false
	}
	for _, a := range apps {
		if appKey(a.Name) == want {
			return a, true
		}
	}
	var found []Application
	for _, a := range apps {
		if i := strings.LastIndexByte(a.Name, '.'); i >= 0 && appKey(a.Name[i+1:]) == want {
			found = append(found, a)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return Application{}, false
}

func appKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
