package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"ocingest/internal/config"
	"ocingest/internal/deps"
	"ocingest/internal/services/opencast"
)

// UserChecker resolves the account behind the configured Opencast credentials.
type UserChecker interface {
	CurrentUser(ctx context.Context) (string, error)
}

// CheckOpencast verifies Opencast connectivity and authentication.
func CheckOpencast(ctx context.Context, client UserChecker) Result {
	const name = "Opencast"
	if client == nil {
		return Result{Name: name, Detail: "client not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := client.CurrentUser(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeOpencastError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (authenticated as %s)", user)}
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

// CheckSystemDeps evaluates the binaries the configured media pipeline invokes.
// ImageMagick is only required when it is the selected rasterizer.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpeg,
			Description: "Required for webcam correction and slide videos",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobe,
			Description: "Required for media integrity checks",
		},
	}
	if cfg.Media.Rasterizer == config.RasterizerImageMagick {
		requirements = append(requirements, deps.Requirement{
			Name:        "ImageMagick",
			Command:     cfg.Media.ImageMagick,
			Description: "Required for slide rasterization",
		})
	}
	if cfg.Cleanup.Enabled && len(cfg.Cleanup.DeleteCommand) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Delete command",
			Command:     cfg.Cleanup.DeleteCommand[0],
			Description: "Removes raw recordings after ingest",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeOpencastError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (Opencast unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (Opencast unreachable)"
	}
	var reqErr *opencast.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth failed (check opencast.user and opencast.password)"
		default:
			return fmt.Sprintf("auth check failed (%d)", reqErr.Status)
		}
	}
	return err.Error()
}
