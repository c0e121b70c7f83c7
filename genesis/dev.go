// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gridmesh/gridmesh/mesh"
)

// DevAccount is a pre-funded account of the dev network.
// The private keys are deterministic and public; never use them outside
// of a development setup.
type DevAccount struct {
	Address    mesh.Address
	PrivateKey *ecdsa.PrivateKey
}

var (
	devAccounts     []DevAccount
	devAccountsOnce sync.Once
)

// DevAccounts returns the ten well-known dev-net accounts.
func DevAccounts() []DevAccount {
	devAccountsOnce.Do(func() {
		for i := 0; i < 10; i++ {
			seed := crypto.Keccak256([]byte(fmt.Sprintf("gridmesh dev account %d", i)))
			pk, err := crypto.ToECDSA(seed)
			if err != nil {
				// out-of-range scalar, practically unreachable
				panic(err)
			}
			devAccounts = append(devAccounts, DevAccount{
				Address:    mesh.Address(crypto.PubkeyToAddress(pk.PublicKey)),
				PrivateKey: pk,
			})
		}
	})
	return devAccounts
}
