package commands

import (
	"os/exec"
	"runtime"
)

// openBrowser opens the URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default: // Linux and friends
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}
