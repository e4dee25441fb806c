// SPDX-License-Identifier: MPL-2.0

package container

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/filters"
)

func dockertypesBuildOptions(tag string) build.ImageBuildOptions {
	return build.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	}
}

// drainBuildResponse reads the newline-delimited JSON build log to
// completion, surfacing the first reported build-step error.
func drainBuildResponse(r io.Reader) error {
	decoder := json.NewDecoder(r)
	for {
		var msg struct {
			Stream string `json:"stream"`
			Error  string `json:"error"`
		}
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading build output: %w", err)
		}
		if msg.Error != "" {
			return fmt.Errorf("%s", msg.Error)
		}
	}
}

func dockerFilterArgsForLabel(labelSelector string) filters.Args {
	if labelSelector == "" {
		return filters.NewArgs()
	}
	return filters.NewArgs(filters.Arg("label", labelSelector))
}
