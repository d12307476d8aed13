package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/sys/unix"

	"dualsub/internal/config"
	"dualsub/internal/deps"
	"dualsub/internal/services/azure"
)

// CheckAzure verifies that the Translator API is reachable and the key is
// valid by translating one word. It uses a 15-second timeout.
func CheckAzure(ctx context.Context, cfg config.Azure, opts ...azure.Option) Result {
	const name = "Azure Translator"

	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := azure.NewClient(azure.Config{
		APIKey:         cfg.APIKey,
		Endpoint:       cfg.Endpoint,
		Region:         cfg.Region,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)
	if _, err := client.TranslateTexts(checkCtx, []string{"hello"}, "en", "fi"); err != nil {
		return Result{Name: name, Detail: summarizeAzureError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckClipboard reports whether a clipboard utility is available.
func CheckClipboard() Result {
	const name = "Clipboard"
	if clipboard.Unsupported {
		return Result{Name: name, Detail: "no clipboard utility found (install xclip, xsel or wl-clipboard)"}
	}
	return Result{Name: name, Passed: true, Detail: "available"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the configured pipeline
// drives.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "whisper",
			Command:     cfg.Whisper.Command,
			Description: "Required for transcription and speech translation",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "Required for selecting embedded subtitle tracks",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Required for extracting embedded subtitle tracks",
			Optional:    true,
		},
		{
			Name:        "mkvmerge",
			Command:     cfg.Tools.Mkvmerge,
			Description: "Required for muxing subtitles into MKV containers",
			Optional:    true,
		},
	}
	if cfg.HasEngine("argos") {
		requirements = append(requirements, deps.Requirement{
			Name:        "argos",
			Command:     cfg.Translation.Argos.Command,
			Description: "Required for the argos translation engine",
		})
	}
	return deps.CheckBinaries(requirements)
}

// summarizeAzureError produces a human-readable summary for Azure check failures.
func summarizeAzureError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Azure API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Azure API unreachable)"
	}
	return err.Error()
}
