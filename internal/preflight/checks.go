package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

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

// CheckReadable verifies that a regular file exists and can be read.
func CheckReadable(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckReadyProperty reports whether the middleware readiness property can
// be read and what it currently says. A missing file passes: the middleware
// creates it while booting.
func CheckReadyProperty(path string) Result {
	const name = "Middleware ready property"

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not yet published)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if strings.TrimSpace(string(data)) == "1" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (ready)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (booting)", path)}
}

// CheckDVBDevices verifies that every DVB frontend node under dir can be
// opened read/write.
func CheckDVBDevices(dir string) Result {
	const name = "DVB devices"

	adapters, err := ScanAdapters(dir)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	if len(adapters) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (no adapters found)", dir)}
	}
	frontends := 0
	for _, adapter := range adapters {
		for _, node := range adapter.Frontends {
			if err := unix.Access(node, unix.R_OK|unix.W_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", node, err)}
			}
			frontends++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d adapter(s), %d frontend(s)", len(adapters), frontends)}
}
