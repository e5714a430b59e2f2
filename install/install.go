// Package install writes and removes the kernel-spec directory Jupyter
// front-ends discover kernels through: kernel.json, logos, and optional
// client assets under the Jupyter data directory. It is a filesystem
// utility, not protocol logic, so it lives outside the kernel package.
package install

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"jupyterkernel/language"
)

// kernelConfig is the JSON shape of kernel.json.
type kernelConfig struct {
	Argv          []string          `json:"argv"`
	DisplayName   string            `json:"display_name"`
	Language      string            `json:"language"`
	InterruptMode string            `json:"interrupt_mode"`
	Metadata      map[string]bool   `json:"metadata"`
}

// DataDir resolves the Jupyter data directory: JUPYTER_PATH first, then
// the OS-specific default Jupyter itself uses.
func DataDir() (string, error) {
	if p := os.Getenv("JUPYTER_PATH"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("install: resolve home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Jupyter"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "jupyter"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "jupyter"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "jupyter"), nil
		}
		return filepath.Join(home, ".local", "share", "jupyter"), nil
	}
}

func kernelDir(languageKey string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "kernels", languageKey), nil
}

// Install writes kernel.json and the language's logos into the Jupyter
// data directory's kernels/<language_key> subdirectory.
func Install(info language.Info) error {
	dir, err := kernelDir(info.LanguageKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("install: create kernel dir: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("install: resolve executable path: %w", err)
	}

	cfg := kernelConfig{
		Argv:          []string{exe, "start", "--control-file", "{connection_file}"},
		DisplayName:   info.DisplayName,
		Language:      info.LanguageKey,
		InterruptMode: "message",
		Metadata:      map[string]bool{"debugger": true},
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("install: marshal kernel.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "kernel.json"), data, 0o644); err != nil {
		return fmt.Errorf("install: write kernel.json: %w", err)
	}

	if len(info.Logo32) > 0 {
		if err := os.WriteFile(filepath.Join(dir, "logo-32x32.png"), info.Logo32, 0o644); err != nil {
			return fmt.Errorf("install: write logo-32x32.png: %w", err)
		}
	}
	if len(info.Logo64) > 0 {
		if err := os.WriteFile(filepath.Join(dir, "logo-64x64.png"), info.Logo64, 0o644); err != nil {
			return fmt.Errorf("install: write logo-64x64.png: %w", err)
		}
	}

	return nil
}

// Uninstall removes the kernel-spec directory for languageKey.
func Uninstall(languageKey string) error {
	dir, err := kernelDir(languageKey)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("install: remove kernel dir: %w", err)
	}
	return nil
}

// OpenJupyterLab launches `python -m jupyterlab` as a convenience. It
// does not wait for JupyterLab to
// exit: the caller typically also starts the status monitor (monitor.go)
// to show progress while the browser tab loads.
func OpenJupyterLab() error {
	cmd := exec.Command("python", "-m", "jupyterlab")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
