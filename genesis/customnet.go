// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gridmesh/gridmesh/builtin"
	"github.com/gridmesh/gridmesh/builtin/rights"
	"github.com/gridmesh/gridmesh/mesh"
	"github.com/gridmesh/gridmesh/state"
)

// CustomGenesis is the YAML-configurable network setup.
type CustomGenesis struct {
	Name       string              `yaml:"name"`
	LaunchTime uint64              `yaml:"launchTime"`
	Admin      string              `yaml:"admin"`
	Accounts   []CustomAccount     `yaml:"accounts"`
	NodeTypes  []CustomNodeType    `yaml:"nodeTypes"`
	Updaters   []string            `yaml:"updaters"`
	Reporters  []string            `yaml:"reporters"`
}

// CustomAccount is a pre-funded account.
type CustomAccount struct {
	Address      string `yaml:"address"`
	Balance      string `yaml:"balance"`
	TokenBalance string `yaml:"tokenBalance"`
}

// CustomNodeType is a node type configuration entry.
type CustomNodeType struct {
	Type           string `yaml:"type"`
	MinNativeStake string `yaml:"minNativeStake"`
	MinTokenStake  string `yaml:"minTokenStake"`
	RewardRate     string `yaml:"rewardRate"`
	MaxCapacity    uint64 `yaml:"maxCapacity"`
	Active         bool   `yaml:"active"`
}

// LoadCustomGenesis reads and parses a YAML genesis file.
func LoadCustomGenesis(path string) (*CustomGenesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var custom CustomGenesis
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, errors.WithMessage(err, "parse genesis file")
	}
	return &custom, nil
}

func parseBig(s, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("genesis: invalid %s %q", field, s)
	}
	return v, nil
}

// NewCustomNet creates a genesis from a custom configuration.
func NewCustomNet(custom *CustomGenesis) (*Genesis, error) {
	name := custom.Name
	if name == "" {
		name = "customnet"
	}

	admin, err := mesh.ParseAddress(custom.Admin)
	if err != nil {
		return nil, errors.WithMessage(err, "genesis: invalid admin address")
	}

	type allocation struct {
		addr    mesh.Address
		balance *big.Int
		token   *big.Int
	}
	allocs := make([]allocation, 0, len(custom.Accounts))
	for _, acc := range custom.Accounts {
		addr, err := mesh.ParseAddress(acc.Address)
		if err != nil {
			return nil, errors.WithMessagef(err, "genesis: invalid account address %q", acc.Address)
		}
		balance, err := parseBig(acc.Balance, "balance")
		if err != nil {
			return nil, err
		}
		token, err := parseBig(acc.TokenBalance, "tokenBalance")
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, allocation{addr, balance, token})
	}

	type typeConfig struct {
		t   rights.NodeType
		cfg *rights.Config
	}
	configs := make([]typeConfig, 0, len(custom.NodeTypes))
	for _, nt := range custom.NodeTypes {
		t, ok := rights.ParseNodeType(nt.Type)
		if !ok {
			return nil, errors.Errorf("genesis: unknown node type %q", nt.Type)
		}
		minNative, err := parseBig(nt.MinNativeStake, "minNativeStake")
		if err != nil {
			return nil, err
		}
		minToken, err := parseBig(nt.MinTokenStake, "minTokenStake")
		if err != nil {
			return nil, err
		}
		rate, err := parseBig(nt.RewardRate, "rewardRate")
		if err != nil {
			return nil, err
		}
		configs = append(configs, typeConfig{t, &rights.Config{
			MinNativeStake: minNative,
			MinTokenStake:  minToken,
			RewardRate:     rate,
			MaxCapacity:    nt.MaxCapacity,
			Active:         nt.Active,
		}})
	}

	updaters := make([]mesh.Address, 0, len(custom.Updaters))
	for _, s := range custom.Updaters {
		addr, err := mesh.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessagef(err, "genesis: invalid updater address %q", s)
		}
		updaters = append(updaters, addr)
	}
	reporters := make([]mesh.Address, 0, len(custom.Reporters))
	for _, s := range custom.Reporters {
		addr, err := mesh.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessagef(err, "genesis: invalid reporter address %q", s)
		}
		reporters = append(reporters, addr)
	}

	return &Genesis{
		name:       name,
		launchTime: custom.LaunchTime,
		setup: func(st *state.State) error {
			tok := builtin.Token(st)
			for _, alloc := range allocs {
				if err := st.SetBalance(alloc.addr, alloc.balance); err != nil {
					return err
				}
				if err := tok.Mint(alloc.addr, alloc.token); err != nil {
					return err
				}
			}

			r := builtin.Rights(st)
			if err := r.SetAdmin(admin); err != nil {
				return err
			}
			for _, tc := range configs {
				if err := r.SetConfig(tc.t, tc.cfg); err != nil {
					return err
				}
			}
			for _, addr := range updaters {
				if err := r.SetUpdater(addr, true); err != nil {
					return err
				}
			}
			p := builtin.Participation(st)
			for _, addr := range reporters {
				if err := p.SetReporter(addr, true); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}
