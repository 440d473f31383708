package supervisor

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// Locator resolves which runtime binary to run and where models are cached,
// preferring a binary installed under the app data directory over a bundled
// copy shipped with the application.
type Locator struct {
	// DataDir is the application data directory (bin/ and models/ live here).
	DataDir string
	// ResourcesDir holds bundled binaries shipped with the app, if any.
	ResourcesDir string
}

// NewLocator creates a locator rooted at the given directories.
func NewLocator(dataDir, resourcesDir string) *Locator {
	return &Locator{DataDir: dataDir, ResourcesDir: resourcesDir}
}

// binaryName returns the platform-specific runtime executable name.
func binaryName() string {
	if runtime.GOOS == "windows" {
		return "ollama.exe"
	}
	return "ollama"
}

// InstallPath returns where the runtime binary is installed under the data dir.
func (l *Locator) InstallPath() string {
	return filepath.Join(l.DataDir, "bin", binaryName())
}

// BundledPath returns where a bundled runtime binary would live in resources.
func (l *Locator) BundledPath() string {
	return filepath.Join(l.ResourcesDir, "ollama", runtime.GOOS, binaryName())
}

// ModelsDir returns the models cache directory under the data dir.
func (l *Locator) ModelsDir() string {
	return filepath.Join(l.DataDir, "models")
}

// BinaryPath returns the runtime binary to use (installed first, then
// bundled) and whether one was found.
func (l *Locator) BinaryPath() (string, bool) {
	if path := l.InstallPath(); exists(path) {
		return path, true
	}
	if path := l.BundledPath(); exists(path) {
		return path, true
	}
	return "", false
}

// EnsureDirs creates the bin and models directories.
func (l *Locator) EnsureDirs() error {
	for _, dir := range []string{filepath.Join(l.DataDir, "bin"), l.ModelsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Install copies the bundled runtime binary into the data directory and
// returns the installed path.
func (l *Locator) Install() (string, error) {
	bundled := l.BundledPath()
	if !exists(bundled) {
		return "", fmt.Errorf("%w: no bundled binary at %s", ErrRuntimeUnavailable, bundled)
	}

	install := l.InstallPath()
	if err := os.MkdirAll(filepath.Dir(install), 0755); err != nil {
		return "", fmt.Errorf("failed to create bin directory: %w", err)
	}

	log.Info("Installing runtime binary", "from", bundled, "to", install)

	data, err := os.ReadFile(bundled)
	if err != nil {
		return "", fmt.Errorf("failed to read bundled binary: %w", err)
	}
	if err := os.WriteFile(install, data, 0755); err != nil {
		return "", fmt.Errorf("failed to write binary: %w", err)
	}

	return install, nil
}

// ModelsSize returns the total on-disk size of the models directory in bytes.
func (l *Locator) ModelsSize() (int64, error) {
	modelsDir := l.ModelsDir()
	if !exists(modelsDir) {
		return 0, nil
	}

	var total int64
	err := filepath.WalkDir(modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure models directory: %w", err)
	}

	return total, nil
}

// DetectSystemRuntime looks for a system-wide runtime installation in the
// common per-platform locations, falling back to a PATH lookup.
func DetectSystemRuntime() (string, bool) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/usr/local/bin/ollama",
			"/opt/homebrew/bin/ollama",
			"/Applications/Ollama.app/Contents/MacOS/ollama",
		}
	case "linux":
		candidates = []string{
			"/usr/local/bin/ollama",
			"/usr/bin/ollama",
			"/snap/bin/ollama",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\Ollama\ollama.exe`,
			`C:\Program Files (x86)\Ollama\ollama.exe`,
		}
	}

	for _, path := range candidates {
		if exists(path) {
			return path, true
		}
	}

	if path, err := exec.LookPath(binaryName()); err == nil {
		return path, true
	}

	return "", false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
