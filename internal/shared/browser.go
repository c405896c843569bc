package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// openCommand returns the platform launcher for a URL or custom-scheme URI.
func openCommand(goos, uri string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", uri), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", uri), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", uri), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser hands uri to the system handler: the default browser for https
// links, or the registered application for schemes like obsidian://.
func OpenBrowser(uri string) error {
	cmd, err := openCommand(getRuntime(), uri)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return nil
}

// ObsidianOpenURI builds the obsidian://open link for a vault-relative note path.
// An empty vault name lets Obsidian use the last focused vault. Values are
// percent-encoded since Obsidian does not decode '+' as a space.
func ObsidianOpenURI(vault, file string) string {
	uri := "obsidian://open?"
	if vault != "" {
		uri += "vault=" + escapeURIComponent(vault) + "&"
	}
	return uri + "file=" + escapeURIComponent(file)
}

func escapeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
