package readiness

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// PropertyFile is a Signal backed by a system property exported as a file.
// The middleware is ready when the trimmed content equals "1".
type PropertyFile string

func (p PropertyFile) Ready(context.Context) (bool, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(string(data)) == "1", nil
}
