// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/gridmesh/gridmesh/kv"

// Stater is the factory of state instances over one store.
type Stater struct {
	store kv.GetPutter
}

// NewStater create a stater object.
func NewStater(store kv.GetPutter) *Stater {
	return &Stater{store}
}

// NewState create a fresh state object on top of the committed store content.
func (s *Stater) NewState() *State {
	return New(s.store)
}
