package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonwraymond/querykit/transport"
)

// FetchFunc performs one read. It matches transport.Get and transport.Fetch.
type FetchFunc func(ctx context.Context) (*transport.Response, error)

// MutateFunc performs one write with payload. It matches transport.Send.
type MutateFunc func(ctx context.Context, payload any) (*transport.Response, error)

// Resolve turns the result of a transport exchange into data or a
// *FetchError. A non-nil err means no response exists, so the body is never
// touched. A non-2xx response has its body drained into the error payload.
func Resolve(resp *transport.Response, err error) (json.RawMessage, error) {
	switch {
	case err != nil:
		if resp != nil {
			_ = resp.Close()
		}
		return nil, &FetchError{Kind: KindNetwork, Message: err.Error(), Err: err}
	case resp == nil:
		return nil, &FetchError{Kind: KindNetwork, Message: transport.ErrNilResponse.Error(), Err: transport.ErrNilResponse}
	case !resp.OK():
		fe := &FetchError{Kind: KindRemote, Status: resp.Status, Message: statusLine(resp)}
		payload, perr := resp.JSON()
		if perr != nil {
			fe.Err = perr
		} else {
			fe.Payload = payload
		}
		return nil, fe
	}

	data, err := resp.JSON()
	if err != nil {
		return nil, &FetchError{Kind: KindDecode, Status: resp.Status, Message: err.Error(), Err: err}
	}
	return data, nil
}

func statusLine(resp *transport.Response) string {
	if resp.StatusText == "" {
		return strconv.Itoa(resp.Status)
	}
	return fmt.Sprintf("%d %s", resp.Status, resp.StatusText)
}
