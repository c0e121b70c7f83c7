// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import "errors"

// Revert codes of the core error taxonomy. Surfaced verbatim to clients.
const (
	CodeNotFound            = "NotFound"
	CodeUnauthorized        = "Unauthorized"
	CodeNotOwner            = "NotOwner"
	CodeInsufficientStake   = "InsufficientStake"
	CodeInvalidAmount       = "InvalidAmount"
	CodeInactiveNodeType    = "InactiveNodeType"
	CodeAlreadyTerminated   = "AlreadyTerminated"
	CodeNodeNotActive       = "NodeNotActive"
	CodeCapacityReached     = "CapacityReached"
	CodeInsufficientBalance = "InsufficientBalance"
)

// ErrRevert is a hard rejection of an operation. The whole operation is
// discarded with no partial state change and no event emitted.
type ErrRevert struct {
	code    string
	message string
}

// New creates a revert error with the given code and message.
func New(code, message string) *ErrRevert {
	return &ErrRevert{
		code:    code,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Code returns the taxonomy code of the rejection.
func (e *ErrRevert) Code() string {
	return e.code
}

// IsRevertErr tells whether err is a revert, as opposed to a state access failure.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Code extracts the taxonomy code of err, or "" if err is not a revert.
func Code(err error) string {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.code
	}
	return ""
}

// Convenience constructors, one per taxonomy code.

func NotFound(message string) *ErrRevert            { return New(CodeNotFound, message) }
func Unauthorized(message string) *ErrRevert        { return New(CodeUnauthorized, message) }
func NotOwner(message string) *ErrRevert            { return New(CodeNotOwner, message) }
func InsufficientStake(message string) *ErrRevert   { return New(CodeInsufficientStake, message) }
func InvalidAmount(message string) *ErrRevert       { return New(CodeInvalidAmount, message) }
func InactiveNodeType(message string) *ErrRevert    { return New(CodeInactiveNodeType, message) }
func AlreadyTerminated(message string) *ErrRevert   { return New(CodeAlreadyTerminated, message) }
func NodeNotActive(message string) *ErrRevert       { return New(CodeNodeNotActive, message) }
func CapacityReached(message string) *ErrRevert     { return New(CodeCapacityReached, message) }
func InsufficientBalance(message string) *ErrRevert { return New(CodeInsufficientBalance, message) }
