// Package apperr is the error taxonomy shared by the dispatcher, the RPC
// service and its clients.
package apperr

import (
	"errors"
	"fmt"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

// Kind classifies an error by how callers should react to it.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindPrecondition Kind = "PRECONDITION_FAILED"
	KindAuth         Kind = "AUTH"
	KindTransport    Kind = "TRANSPORT"
	KindInternal     Kind = "INTERNAL"
)

// Code identifies the specific business rule that failed.
type Code string

const (
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeAuctionNotFound        Code = "AUCTION_NOT_FOUND"
	CodeAuctionNotRunning      Code = "AUCTION_NOT_RUNNING"
	CodeAuctionNotPaused       Code = "AUCTION_NOT_PAUSED"
	CodeAuctionAlreadyStarted  Code = "AUCTION_ALREADY_STARTED"
	CodeAuctionCompleted       Code = "AUCTION_COMPLETED"
	CodeNotReady               Code = "NOT_READY"
	CodeCurrentItemActive      Code = "CURRENT_ITEM_ACTIVE"
	CodeNoAvailablePlayers     Code = "NO_AVAILABLE_PLAYERS"
	CodePlayerNotFound         Code = "PLAYER_NOT_FOUND"
	CodePlayerNotAvailable     Code = "PLAYER_NOT_AVAILABLE"
	CodeTeamNotFound           Code = "TEAM_NOT_FOUND"
	CodeNoActiveItem           Code = "NO_ACTIVE_ITEM"
	CodeBidTooLow              Code = "BID_TOO_LOW"
	CodeAlreadyLeading         Code = "ALREADY_LEADING"
	CodeRosterFull             Code = "ROSTER_FULL"
	CodeInsufficientBudget     Code = "INSUFFICIENT_BUDGET"
	CodeNoBids                 Code = "NO_BIDS"
	CodeNothingToRecall        Code = "NOTHING_TO_RECALL"
	CodeAlreadyRecalled        Code = "ALREADY_RECALLED"
	CodeAvailablePlayersRemain Code = "AVAILABLE_PLAYERS_REMAIN"
	CodeNoPendingPlayers       Code = "NO_PENDING_PLAYERS"
	CodeNoUnsoldPlayers        Code = "NO_UNSOLD_PLAYERS"
	CodeNoPlayersToShuffle     Code = "NO_PLAYERS_TO_SHUFFLE"
	CodePermissionDenied       Code = "PERMISSION_DENIED"
	CodeUnavailable            Code = "UNAVAILABLE"
	CodeInternal               Code = "INTERNAL"
)

// Details carries remediation data for precondition failures.
type Details struct {
	Breakdown *models.StatusBreakdown `json:"breakdown,omitempty"`
	Issues    []string                `json:"issues,omitempty"`
}

// Error is a classified failure. It never carries raw transport text in
// Message; the underlying cause stays reachable through Unwrap.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details *Details
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error by Code so errors.Is(err, apperr.New(...)) works
// against sentinel values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Payload is the wire shape {code, message, details?}.
type Payload struct {
	Kind    Kind     `json:"kind"`
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Details *Details `json:"details,omitempty"`
}

func (e *Error) Payload() Payload {
	return Payload{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: e.Details}
}

// FromPayload rebuilds an Error received over the wire.
func FromPayload(p Payload) *Error {
	return &Error{Kind: p.Kind, Code: p.Code, Message: p.Message, Details: p.Details}
}

func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidRequest, Message: msg, cause: cause}
}

func Precondition(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Code: CodePermissionDenied, Message: msg}
}

// Transport wraps a connectivity failure. Message is fixed so raw network
// text never reaches users.
func Transport(cause error) *Error {
	return &Error{Kind: KindTransport, Code: CodeUnavailable, Message: "connection to auction server lost", cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", cause: cause}
}

// WithBreakdown attaches a per-status item count.
func (e *Error) WithBreakdown(b models.StatusBreakdown) *Error {
	if e.Details == nil {
		e.Details = &Details{}
	}
	e.Details.Breakdown = &b
	return e
}

// WithIssues attaches a list of human readable problems.
func (e *Error) WithIssues(issues []string) *Error {
	if e.Details == nil {
		e.Details = &Details{}
	}
	e.Details.Issues = issues
	return e
}

// As extracts an *Error from err. Unclassified errors come back as INTERNAL.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Retryable reports whether a caller may retry without changing anything.
func Retryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}
