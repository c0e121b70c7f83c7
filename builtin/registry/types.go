// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import "github.com/gridmesh/gridmesh/mesh"

// Node is a registered unit of infrastructure.
type Node struct {
	ID           uint64       `json:"id"`
	Owner        mesh.Address `json:"owner"`
	Metadata     string       `json:"metadata"`
	RegisteredAt uint64       `json:"registeredAt"`
}

// entry is the persistent form of a node identity.
type entry struct {
	Owner        mesh.Address
	Metadata     string
	RegisteredAt uint64
}
