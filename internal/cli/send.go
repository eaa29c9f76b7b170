package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/querykit/query"
	"github.com/jonwraymond/querykit/transport"
)

var errInvalidBody = errors.New("body is not valid JSON")

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <method> <path> [json-body]",
		Short: "Run a mutation and print its final state",
		Long:  "Sends a POST, PUT, PATCH or DELETE request. Mutations never read or fill the cache.",
		Example: `  querykit send POST users '{"name":"ada"}'
  querykit send DELETE users/1`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body string
			if len(args) == 3 {
				body = args[2]
			}
			return runSend(cmd, args[0], args[1], body)
		},
	}
}

func runSend(cmd *cobra.Command, method, path, body string) error {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported mutation method %q", method)
	}

	var payload any
	if body != "" {
		if !json.Valid([]byte(body)) {
			return errInvalidBody
		}
		payload = json.RawMessage(body)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	m, err := query.NewMutation(transport.Send(rt.client, method, path),
		query.WithDefaults(query.Options{Method: method}),
		query.WithObserver(rt.obs),
	)
	if err != nil {
		return err
	}

	st := m.Mutate(cmd.Context(), payload, query.Callbacks{})
	newStatePrinter(cmd.OutOrStdout()).print(st)
	if st.IsError {
		return fmt.Errorf("%s %s: %w", method, path, st.Error)
	}
	return nil
}
