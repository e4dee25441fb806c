// SPDX-License-Identifier: MPL-2.0

package container

import (
	"os"
	"path/filepath"
)

// hasSetupScript reports whether challengeDir contains an optional
// setup.sh to run after the container starts.
func hasSetupScript(challengeDir string) bool {
	_, err := os.Stat(filepath.Join(challengeDir, "setup.sh"))
	return err == nil
}
