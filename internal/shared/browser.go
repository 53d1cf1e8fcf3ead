package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the consent page at url in the user's browser.
//
// The BROWSER environment variable wins when set; otherwise the platform opener is used (macOS, Linux, Windows).
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch {
	case os.Getenv("BROWSER") != "":
		cmd = exec.Command(os.Getenv("BROWSER"), url)
	case rt == "darwin":
		cmd = exec.Command("open", url)
	case rt == "linux":
		cmd = exec.Command("xdg-open", url)
	case rt == "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
