// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mesh

// Constants of the node-rights protocol.
const (
	BlockInterval uint64 = 5 // time interval between two consecutive blocks, in seconds

	// performance scores are expressed in basis points, 10000 == 100%.
	ScoreScale   uint32 = 10000
	InitialScore uint32 = 10000
	ScoreCeiling uint32 = 12000 // only reachable via upgrade bonus

	// status tier lower bounds, inclusive.
	TierActiveMinScore uint32 = 9000
	TierMinorMinScore  uint32 = 5000
	TierMajorMinScore  uint32 = 2000

	// slashing penalties, in basis points of staked token.
	SlashMinorBps      uint32 = 500
	SlashMajorBps      uint32 = 1500
	SlashTerminatedBps uint32 = 10000

	// participation ledger accrues this many reward units per reported minute.
	UptimeRewardPerMinute uint64 = 1
)

// Slash reasons, surfaced verbatim in NodeSlashed events.
const (
	SlashReasonMinor      = "performance degraded below 90%"
	SlashReasonMajor      = "performance degraded below 50%"
	SlashReasonTerminated = "performance collapsed below 20%"
)
