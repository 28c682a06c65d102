//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/harp/internal/errors"
)

// openNoFollow opens path. Windows has no O_NOFOLLOW; ValidatePath already
// rejected symlinks.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if os.IsNotExist(err) && flag&os.O_CREATE == 0 {
		return nil, errors.NewInvalidRequest("file not found: " + path)
	}
	if err != nil {
		return nil, errors.NewIO("open "+path, err)
	}
	return f, nil
}
