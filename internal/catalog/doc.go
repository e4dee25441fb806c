// SPDX-License-Identifier: MPL-2.0

// Package catalog reads the on-disk challenge directory layout: a root
// directory of subdirectories, each carrying a challenge.yaml manifest
// plus validate.sh and an optional setup.sh. It is the concrete
// implementation of the ChallengeCatalog capability ContainerManager and
// ValidationCoordinator depend on.
package catalog
