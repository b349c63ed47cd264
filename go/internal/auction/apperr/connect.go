package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ConnectCode maps an error kind (and a few not-found codes) to a Connect code.
func (e *Error) ConnectCode() connect.Code {
	switch e.Kind {
	case KindValidation:
		return connect.CodeInvalidArgument
	case KindPrecondition:
		switch e.Code {
		case CodeAuctionNotFound, CodePlayerNotFound, CodeTeamNotFound:
			return connect.CodeNotFound
		}
		return connect.CodeFailedPrecondition
	case KindAuth:
		return connect.CodePermissionDenied
	case KindTransport:
		return connect.CodeUnavailable
	}
	return connect.CodeInternal
}

// ToConnect converts err into a *connect.Error carrying the payload as a
// google.protobuf.Struct detail.
func ToConnect(err error) *connect.Error {
	e := As(err)
	cerr := connect.NewError(e.ConnectCode(), errors.New(e.Message))
	detail, derr := payloadDetail(e.Payload())
	if derr == nil {
		cerr.AddDetail(detail)
	}
	return cerr
}

func payloadDetail(p Payload) (*connect.ErrorDetail, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal error payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal error payload: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct detail: %w", err)
	}
	return connect.NewErrorDetail(s)
}

// FromConnect recovers an *Error from an RPC failure. Errors without a
// payload detail are classified by their Connect code.
func FromConnect(err error) *Error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Transport(err)
		}
		return Internal(err)
	}
	for _, d := range cerr.Details() {
		msg, verr := d.Value()
		if verr != nil {
			continue
		}
		s, ok := msg.(*structpb.Struct)
		if !ok {
			continue
		}
		raw, merr := json.Marshal(s.AsMap())
		if merr != nil {
			continue
		}
		var p Payload
		if json.Unmarshal(raw, &p) == nil && p.Code != "" {
			return FromPayload(p)
		}
	}
	switch cerr.Code() {
	case connect.CodeInvalidArgument:
		return Validation(cerr.Message(), cerr)
	case connect.CodePermissionDenied, connect.CodeUnauthenticated:
		return Auth(cerr.Message())
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeCanceled:
		return Transport(cerr)
	case connect.CodeFailedPrecondition, connect.CodeNotFound:
		return &Error{Kind: KindPrecondition, Code: Code(cerr.Code().String()), Message: cerr.Message()}
	}
	return Internal(cerr)
}
