package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusSuccess is the only status value routed to the success branch.
const StatusSuccess = "success"

// Request is the payload of one outbound chat call.
type Request struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

// Response is the raw JSON shape returned by the chat service.
type Response struct {
	Status   string `json:"status,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UnmarshalJSON accepts any JSON value for the three fields. Only a string
// status can be "success"; any other status keeps its raw text and routes to
// the error branch. A non-string response or error decodes as empty text.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status   json.RawMessage `json:"status"`
		Response json.RawMessage `json:"response"`
		Error    json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Response{
		Response: rawString(raw.Response),
		Error:    rawString(raw.Error),
	}
	if len(raw.Status) > 0 && !bytes.Equal(raw.Status, []byte("null")) {
		if err := json.Unmarshal(raw.Status, &r.Status); err != nil {
			r.Status = string(raw.Status)
		}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// ResultKind discriminates the outcome of a chat call.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultApplicationError
	ResultTransportFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultApplicationError:
		return "application_error"
	case ResultTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the validated outcome of a chat call. Text carries the reply on
// success and the optional service error text on application errors.
type Result struct {
	Kind ResultKind
	Text string
	Err  error
}

// Success builds a success result.
func Success(reply string) Result { return Result{Kind: ResultSuccess, Text: reply} }

// ApplicationError builds an application error result; text may be empty.
func ApplicationError(text string) Result {
	return Result{Kind: ResultApplicationError, Text: text}
}

// TransportFailure builds a transport failure result around the underlying cause.
func TransportFailure(err error) Result { return Result{Kind: ResultTransportFailure, Err: err} }

var ErrMalformedResponse = errors.New("malformed chat response")

// Validate checks a decoded response and turns it into a Result.
// A success without reply text is malformed.
func (r Response) Validate() (Result, error) {
	if r.Status == StatusSuccess {
		if strings.TrimSpace(r.Response) == "" {
			return Result{}, fmt.Errorf("%w: success without response text", ErrMalformedResponse)
		}
		return Success(r.Response), nil
	}
	return ApplicationError(r.Error), nil
}

// DecodeResult parses a raw chat service body. Anything that is not a JSON
// object, or that fails validation, is reported as a transport failure.
func DecodeResult(body []byte) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return TransportFailure(fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse))
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return TransportFailure(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	result, err := resp.Validate()
	if err != nil {
		return TransportFailure(err)
	}
	return result
}
