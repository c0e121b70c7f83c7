// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides structured logging for the whole node,
// backed by the go-ethereum slog handlers.
package log

import (
	"os"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
)

// Logger carries a key-value context and writes leveled records.
type Logger = ethlog.Logger

// New returns a logger with the given context attached.
func New(ctx ...any) Logger {
	return ethlog.Root().New(ctx...)
}

// Root returns the process-wide root logger.
func Root() Logger {
	return ethlog.Root()
}

// Setup installs the terminal handler on the root logger at the given
// legacy verbosity (0 silent .. 5 trace). Color is enabled only when
// stderr is a terminal.
func Setup(verbosity int) {
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	handler := ethlog.NewTerminalHandlerWithLevel(os.Stderr, ethlog.FromLegacyLevel(verbosity), useColor)
	ethlog.SetDefault(ethlog.NewLogger(handler))
}
